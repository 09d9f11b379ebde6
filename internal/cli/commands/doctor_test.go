package commands

import (
	"encoding/json"
	"testing"

	rootutil "github.com/leapstack-labs/recipekit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkByID(t *testing.T, out DoctorOutput, id string) HealthCheck {
	t.Helper()
	for _, c := range out.HealthChecks {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("check %s not reported", id)
	return HealthCheck{}
}

func TestDoctor_Healthy(t *testing.T) {
	srv, _ := stubServer(t)
	setupProject(t, srv.URL)

	stdout, _, err := execute(t, NewDoctorCommand())
	require.NoError(t, err)

	var out DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 1, out.Summary.RecipeFiles)
	assert.Equal(t, "sqlite", out.Summary.StateDialect)
	assert.NotEmpty(t, out.Summary.ConfigFile)

	for _, id := range []string{"CF01", "ST01", "SV01", "RC01", "RC02"} {
		assert.Equal(t, checkPass, checkByID(t, out, id).Status, id)
	}
	// No token stored yet.
	assert.Equal(t, checkWarn, checkByID(t, out, "ST02").Status)
	assert.Equal(t, 90, out.Score)
	assert.Len(t, out.Recommendations, 1)
}

func TestDoctor_Problems(t *testing.T) {
	dir, _ := setupProject(t, "http://127.0.0.1:1")

	rc := rootutil.SampleRecipe()
	rc.Nodes = rc.Nodes[1:]
	rc.Edges = rc.Edges[1:]
	rootutil.WriteRecipe(t, dir+"/recipes", "broken.json", rc)

	stdout, _, err := execute(t, NewDoctorCommand())
	require.Error(t, err)

	var out DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 2, out.Summary.RecipeFiles)
	assert.Equal(t, checkError, checkByID(t, out, "SV01").Status)

	valid := checkByID(t, out, "RC01")
	assert.Equal(t, checkError, valid.Status)
	require.Len(t, valid.Details, 1)
	assert.Contains(t, valid.Details[0], "broken.json")
	assert.Less(t, out.Score, 70)
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     int
	}{
		{"all pass", []string{checkPass, checkPass}, 100},
		{"one warning", []string{checkWarn, checkPass}, 90},
		{"one error", []string{checkError}, 75},
		{"floor at zero", []string{checkError, checkError, checkError, checkError, checkError}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := make([]HealthCheck, 0, len(tt.statuses))
			for _, s := range tt.statuses {
				checks = append(checks, HealthCheck{Status: s})
			}
			assert.Equal(t, tt.want, calculateHealthScore(checks))
		})
	}
}
