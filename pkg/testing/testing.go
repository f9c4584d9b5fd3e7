package testing

import (
	"os"
	"path/filepath"
	"runtime"
)

func init() {
	// cd to the project root so relative paths (logs/, *.db) resolve the same
	// way for every package under test. Usage, in some_test.go:
	//
	//   import (
	//     _ "liyu1981.xyz/alerta-mesh/pkg/testing"
	//   )
	//
	// common cannot be imported here: its own tests import this package.

	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := os.Chdir(root); err != nil {
		panic(err)
	}

	if _, found := os.LookupEnv("ALERTA_LOG_DIR"); !found {
		_ = os.Setenv("ALERTA_LOG_DIR", filepath.Join(root, "logs", "test"))
	}
}
