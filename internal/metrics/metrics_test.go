package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysync/internal/reconcile"
)

func TestRecorder(t *testing.T) {
	r := New()
	r.FileScanned()
	r.FileScanned()
	r.FileFailed()
	r.KeysExtracted(12)
	r.Reconciled(&reconcile.Result{Locale: "de", Namespace: "common", Updated: true, Added: 3, Removed: 1})
	r.Reconciled(&reconcile.Result{Locale: "de", Namespace: "common", Added: 0})
	r.RunFinished(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.filesScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fileErrors))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.keysExtracted))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.catalogsChanged.WithLabelValues("de")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.keysAdded.WithLabelValues("de", "common")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.keysRemoved.WithLabelValues("de", "common")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.runDuration))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.FileScanned()

	path := filepath.Join(t.TempDir(), "keysync.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keysync_files_scanned_total 1")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.FileScanned()
	r.FileFailed()
	r.KeysExtracted(1)
	r.Reconciled(&reconcile.Result{})
	r.RunFinished(time.Second)
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("unused"))
}
