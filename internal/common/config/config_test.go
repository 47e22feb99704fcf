package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/proxgrad/internal/common/optimisation"
	"github.com/armadaproject/proxgrad/internal/common/tensor"
)

type testConfig struct {
	Optimiser optimisation.Kind
	DType     tensor.DType
	Storage   tensor.StorageType
	Timeout   time.Duration
	Names     []string
	Nested    struct {
		Steps int `validate:"gte=1"`
		Rate  float64
	}
}

const baseConfig = `
optimiser: prox_group_adagrad
dtype: float64
storage: row_sparse
timeout: 5s
names: [a, b]
nested:
  steps: 3
  rate: 0.1
`

func writeFile(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseConfig)

	var c testConfig
	require.NoError(t, LoadConfig(&c, dir, nil, "PROXGRADTEST"))
	assert.Equal(t, optimisation.ProxGroupAdaGrad, c.Optimiser)
	assert.Equal(t, tensor.Float64, c.DType)
	assert.Equal(t, tensor.StorageRowSparse, c.Storage)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, []string{"a", "b"}, c.Names)
	assert.Equal(t, 3, c.Nested.Steps)
	assert.Equal(t, 0.1, c.Nested.Rate)
	assert.NoError(t, Validate(c))
}

func TestLoadConfig_UserConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseConfig)
	first := writeFile(t, dir, "first.yaml", "optimiser: nesterov\nnested:\n  steps: 7\n")
	second := writeFile(t, dir, "second.yaml", "nested:\n  steps: 9\n")

	var c testConfig
	require.NoError(t, LoadConfig(&c, dir, []string{first, second}, "PROXGRADTEST"))
	assert.Equal(t, optimisation.Nesterov, c.Optimiser)
	assert.Equal(t, 9, c.Nested.Steps)
	assert.Equal(t, 0.1, c.Nested.Rate)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseConfig)
	t.Setenv("PROXGRADTEST_NESTED_STEPS", "11")
	t.Setenv("PROXGRADTEST_OPTIMISER", "descent")

	var c testConfig
	require.NoError(t, LoadConfig(&c, dir, nil, "PROXGRADTEST"))
	assert.Equal(t, 11, c.Nested.Steps)
	assert.Equal(t, optimisation.Descent, c.Optimiser)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown optimiser": "optimiser: adam\n",
		"unknown dtype":     "dtype: float16\n",
		"unknown storage":   "storage: csr\n",
	}
	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "config.yaml", contents)
			var c testConfig
			assert.Error(t, LoadConfig(&c, dir, nil, "PROXGRADTEST"))
		})
	}
}

func TestLoadConfig_MissingDefault(t *testing.T) {
	var c testConfig
	assert.Error(t, LoadConfig(&c, t.TempDir(), nil, "PROXGRADTEST"))
}

func TestValidate(t *testing.T) {
	var c testConfig
	err := Validate(c)
	require.Error(t, err)
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
	assert.Equal(t, "testConfig.Nested.Steps", validationErrors[0].Namespace())
	assert.Equal(t, "Nested.Steps", stripPrefix(validationErrors[0].Namespace()))
	LogValidationErrors(err)
	LogValidationErrors(nil)
}
