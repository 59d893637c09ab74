package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfiguredAdmins(t *testing.T) {
	ids := ConfiguredAdmins([]int64{42, 7}, []string{" uid-1 ", "", "tg:9"})
	assert.Equal(t, []string{"tg:42", "tg:7", "uid-1", "tg:9"}, ids)

	assert.Empty(t, ConfiguredAdmins(nil, nil))
}
