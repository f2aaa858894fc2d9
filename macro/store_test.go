package macro

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "macros.db"))
	assert.NoError(t, err)
	defer store.Close()

	m := Macro{
		Name: "vol_up",
		Steps: []Step{
			{Addr: 0x03, Data: []byte{0x02, 0x21}, DelayAfter: 40 * time.Millisecond},
			{Addr: 0x05, Data: []byte{0x2A, 0xC8, 0xA0}},
		},
	}

	t.Run("save and load", func(t *testing.T) {
		id, err := store.Save(m)
		assert.NoError(t, err)
		assert.NotEmpty(t, id)

		loaded, err := store.Load("vol_up")
		assert.NoError(t, err)
		assert.Equal(t, m, loaded)
	})

	t.Run("replace by name", func(t *testing.T) {
		m2 := Macro{Name: "vol_up", Steps: []Step{{Addr: 0x03, Data: []byte{0x01}}}}
		_, err := store.Save(m2)
		assert.NoError(t, err)

		loaded, err := store.Load("vol_up")
		assert.NoError(t, err)
		assert.Equal(t, m2, loaded)

		names, err := store.Names()
		assert.NoError(t, err)
		assert.Equal(t, []string{"vol_up"}, names)
	})

	t.Run("missing macro", func(t *testing.T) {
		_, err := store.Load("no_such_macro")
		assert.Error(t, err)
	})

	t.Run("unnamed macro rejected", func(t *testing.T) {
		_, err := store.Save(Macro{})
		assert.Error(t, err)
	})
}
