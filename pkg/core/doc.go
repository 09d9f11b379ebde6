// Package core defines the shared language of recipekit.
//
// This package contains:
//   - Editor entities (Recipe, Node, Edge, Viewport)
//   - Compile DTOs exchanged with the compile service (CompileRequest, CompiledRecipe)
//   - Service interfaces (Compiler, Store)
//   - Diagnostic severities used by recipe lint
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
