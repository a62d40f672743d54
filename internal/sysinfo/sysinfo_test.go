package sysinfo

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nodescout/nodescout/internal/core"
)

func TestOSFamily(t *testing.T) {
	assert.Equal(t, core.OSFamilyWindows, osFamily("windows"))
	assert.Equal(t, core.OSFamilyLinux, osFamily("linux"))
	assert.Equal(t, core.OSFamilyLinux, osFamily("darwin"))
	assert.Equal(t, core.OSFamilyLinux, osFamily("freebsd"))
	assert.Equal(t, core.OSFamilyUnknown, osFamily("plan9"))
}

func TestDetect_BestEffort(t *testing.T) {
	info := Detect(context.Background(), nil)

	assert.Equal(t, osFamily(runtime.GOOS), info.OSFamily)
	assert.Equal(t, core.LocationLocal, info.Location)
	assert.Equal(t, core.InteractionPassive, info.InteractionLevel)
}
