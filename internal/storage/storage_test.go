package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phototrip/phototrip/internal/storage"
	"github.com/phototrip/phototrip/internal/storage/memory"
)

func TestMemoryBackendSatisfiesInterface(t *testing.T) {
	var b storage.Backend = memory.New(memory.Config{})
	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}
