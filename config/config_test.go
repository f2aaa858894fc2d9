package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyEmbeddedDefault(t *testing.T) {
	assert.NoError(t, apply(defaultConfigData, overrides{}))

	assert.Equal(t, "pi", ProfileName)
	assert.Equal(t, "gpio", ProbeName)
	assert.Equal(t, "GPIO2", SDAPin)
	assert.Equal(t, "GPIO3", SCLPin)
	assert.Equal(t, 1, BusNumber)
	assert.NotEmpty(t, StorePath)

	up, ok := Macros["vol_up"]
	if assert.True(t, ok, "vol_up macro missing") {
		assert.Len(t, up.Steps, 3)
		assert.Equal(t, byte(0x03), up.Steps[0].Addr)
		assert.Equal(t, []byte{0x02, 0x21}, up.Steps[0].Data)
		assert.Equal(t, 40*time.Millisecond, up.Steps[0].DelayAfter)
		assert.Equal(t, time.Duration(0), up.Steps[2].DelayAfter)
	}
	_, ok = Macros["vol_down"]
	assert.True(t, ok, "vol_down macro missing")
}

func TestApplyProfileOverride(t *testing.T) {
	assert.NoError(t, apply(defaultConfigData, overrides{Profile: "pico-bridge"}))
	assert.Equal(t, "pico-bridge", ProfileName)
	assert.Equal(t, "serial", ProbeName)
}

func TestApplyRejectsUnknownProfile(t *testing.T) {
	err := apply(defaultConfigData, overrides{Profile: "nope"})
	assert.ErrorContains(t, err, `profile "nope" not found`)
}

func TestApplyValidatesMacros(t *testing.T) {
	bad := []byte(`
default = "pi"

[[profile]]
name = "pi"
probe = "gpio"
sda = "GPIO2"
scl = "GPIO3"
bus = 1

[[macro]]
name = "broken"

  [[macro.step]]
  addr = 0x95
  data = [0x01]
`)
	err := apply(bad, overrides{})
	assert.ErrorContains(t, err, "out of 7-bit range")
}
