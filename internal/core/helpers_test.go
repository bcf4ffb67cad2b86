package core_test

import (
	"encoding/json"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/cortex/internal/model"
)

func themeJSON(t *testing.T, theme model.Theme) string {
	t.Helper()
	data, err := json.Marshal(theme)
	assert.NilError(t, err)
	return string(data)
}
