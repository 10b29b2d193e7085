package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/stretchr/testify/require"
)

func Test_NewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")

	log, err := logger.NewWithFile("TEST", logger.FileConfig{Path: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Infow("startup", "status", "testing")
	log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"service":"TEST"`)
	require.Contains(t, string(data), `"status":"testing"`)
}

func Test_New(t *testing.T) {
	log, err := logger.New("TEST")
	require.NoError(t, err)
	require.NotNil(t, log)
}
