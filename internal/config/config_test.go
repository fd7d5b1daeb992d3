package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1500*time.Millisecond, cfg.Button.LongPress)
	assert.Equal(t, 4000*time.Millisecond, cfg.Button.MenuTimeout)
	assert.Equal(t, 50.0, cfg.Triac.MainsHz)
	assert.Equal(t, uint16(0x5A), cfg.Sensors.IRAddress)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halo.yaml")
	yml := `
gpio:
  button: 5
triac:
  mains_hz: 60
button:
  long_press: 2s
mqtt:
  broker: tcp://broker.local:1883
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.GPIO.Button)
	assert.Equal(t, 17, cfg.GPIO.ZeroCross, "unset keys keep defaults")
	assert.Equal(t, 60.0, cfg.Triac.MainsHz)
	assert.Equal(t, 2*time.Second, cfg.Button.LongPress)
	assert.Equal(t, 50*time.Millisecond, cfg.Button.Debounce)
	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"mains":      "triac:\n  mains_hz: 55\n",
		"long press": "button:\n  long_press: 10ms\n",
		"bar":        "led:\n  bar_count: 20\n",
		"status":     "led:\n  status_index: 9\n",
		"buffer":     "mqtt:\n  buffer_size: 0\n",
		"retention":  "storage:\n  retention: -1h\n",
	}
	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "halo.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yml), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gpio: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halo.yaml")
	cfg := Default()
	cfg.HTTPAddr = ":8080"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
