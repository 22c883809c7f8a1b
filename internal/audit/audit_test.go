package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookfinder/internal/favorites"
)

func TestAuditor(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	auditor := NewAuditor(dir)

	t.Run("SaveJSON creates the directory and saves the payload", func(t *testing.T) {
		dump := favorites.LegacyDump{"favorites_a@example.com": `[{"id":"b1"}]`}

		filename, err := auditor.SaveJSON(dump)
		require.NoError(t, err)
		assert.Equal(t, ".json", filepath.Ext(filename))

		content, err := os.ReadFile(filepath.Join(dir, filename))
		require.NoError(t, err)

		var saved favorites.LegacyDump
		require.NoError(t, json.Unmarshal(content, &saved))
		assert.Equal(t, dump, saved)
	})

	t.Run("SaveJSON generates unique filenames", func(t *testing.T) {
		first, err := auditor.SaveJSON(map[string]string{"key": "value"})
		require.NoError(t, err)
		second, err := auditor.SaveJSON(map[string]string{"key": "value"})
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("nil or unconfigured auditor is a no-op", func(t *testing.T) {
		var nilAuditor *Auditor
		name, err := nilAuditor.SaveJSON("x")
		assert.NoError(t, err)
		assert.Empty(t, name)

		name, err = NewAuditor("").SaveJSON("x")
		assert.NoError(t, err)
		assert.Empty(t, name)
	})
}
