package bundle_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/bundle"
)

func memReader(files map[string]string) bundle.FileReader {
	return func(path string) (string, error) {
		if src, ok := files[path]; ok {
			return src, nil
		}
		return "", fmt.Errorf("no such file: %s", path)
	}
}

func TestLoadFlattensImportsDepthFirst(t *testing.T) {
	root, _ := filepath.Abs("root.tenor")
	a, _ := filepath.Abs("a.tenor")
	b, _ := filepath.Abs("b.tenor")
	files := map[string]string{
		root: `import "a.tenor"
import "b.tenor"
persona root_p { }
`,
		a: `persona a_p { }
`,
		b: `persona b_p { }
`,
	}
	l := bundle.NewLoader(filepath.Dir(root), memReader(files))
	res, err := l.Load(root)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Constructs, 3)
	require.Equal(t, "root_p", res.Constructs[0].Persona.ID)
	require.Equal(t, "a_p", res.Constructs[1].Persona.ID)
	require.Equal(t, "b_p", res.Constructs[2].Persona.ID)
}

func TestLoadDetectsCycle(t *testing.T) {
	root, _ := filepath.Abs("root.tenor")
	a, _ := filepath.Abs("a.tenor")
	files := map[string]string{
		root: `import "a.tenor"
`,
		a: `import "root.tenor"
`,
	}
	l := bundle.NewLoader(filepath.Dir(root), memReader(files))
	_, err := l.Load(root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cyclic import")
}

func TestLoadRejectsOutsideSandbox(t *testing.T) {
	root, _ := filepath.Abs("sandbox/root.tenor")
	outside, _ := filepath.Abs("outside.tenor")
	files := map[string]string{
		root: `import "../outside.tenor"
`,
		outside: `persona p { }
`,
	}
	l := bundle.NewLoader(filepath.Dir(root), memReader(files))
	_, err := l.Load(root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sandbox")
}

func TestLoadDiamondImportDeduplicates(t *testing.T) {
	root, _ := filepath.Abs("root.tenor")
	a, _ := filepath.Abs("a.tenor")
	b, _ := filepath.Abs("b.tenor")
	shared, _ := filepath.Abs("shared.tenor")
	files := map[string]string{
		root:   "import \"a.tenor\"\nimport \"b.tenor\"\n",
		a:      "import \"shared.tenor\"\n",
		b:      "import \"shared.tenor\"\n",
		shared: "persona shared_p { }\n",
	}
	l := bundle.NewLoader(filepath.Dir(root), memReader(files))
	res, err := l.Load(root)
	require.NoError(t, err)
	require.Len(t, res.Constructs, 1)
}
