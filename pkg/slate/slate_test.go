package slate

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/slate/pkg/types"
)

func TestOpenBackends(t *testing.T) {
	for _, backend := range []string{types.BackendJSON, types.BackendSQLite, types.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "data")
			s, err := Open(types.Config{Backend: backend, DataDir: dir, Create: true},
				WithMetrics(NewMetrics(prometheus.NewRegistry())))
			require.NoError(t, err)
			defer s.Close()

			_, err = s.CreateEntityType("Project")
			require.NoError(t, err)
			_, err = s.CreateField("Project", "code", types.FieldSpec{Type: types.FieldText, Required: true})
			require.NoError(t, err)
			rec, err := s.Create("Project", map[string]any{"code": "test"}, nil)
			require.NoError(t, err)
			assert.Equal(t, types.Record{"id": 1, "type": "Project", "code": "test"}, rec)
		})
	}
}

func TestOpenRequiresExistingDataFile(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{types.BackendJSON, types.BackendSQLite} {
		_, err := Open(types.Config{Backend: backend, DataDir: dir})
		assert.ErrorIs(t, err, types.ErrStorage, backend)
		assert.ErrorIs(t, err, fs.ErrNotExist, backend)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(types.Config{})
	assert.ErrorIs(t, err, types.ErrBackendEmpty)

	_, err = Open(types.Config{Backend: "postgres"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)

	_, err = Open(types.Config{Backend: types.BackendJSON})
	assert.Error(t, err)
}
