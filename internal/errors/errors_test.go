package errors

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	err := Wrap(sql.ErrNoRows, "failed to load observation")
	assert.True(t, Is(err, sql.ErrNoRows))
	assert.Contains(t, err.Error(), "failed to load observation")
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("confidence out of range"), "use a value between 0 and 1")
	assert.Equal(t, []string{"use a value between 0 and 1"}, GetAllHints(err))
	assert.Equal(t, "confidence out of range", err.Error())
}
