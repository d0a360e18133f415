package raw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryPrependShapes(t *testing.T) {
	clients := []string{"river/client?http://localhost:8080/sockjs-node", "river/hot/dev-server"}

	t.Run("named", func(t *testing.T) {
		e := Entry{Named: map[string][]string{"app": {"./src/main.ts"}, "admin": {"./src/admin.ts"}}}
		got := e.Prepend(clients)
		assert.Equal(t, append(append([]string{}, clients...), "./src/main.ts"), got.Named["app"])
		assert.Equal(t, append(append([]string{}, clients...), "./src/admin.ts"), got.Named["admin"])
		assert.Equal(t, []string{"./src/main.ts"}, e.Named["app"], "original entry must not change")
	})

	t.Run("factory", func(t *testing.T) {
		var received []string
		e := Entry{Factory: func(prepend []string) Entry {
			received = prepend
			return Entry{List: append(prepend, "./src/generated.ts")}
		}}
		got := e.Prepend(clients)
		assert.Equal(t, clients, received)
		assert.Equal(t, append(append([]string{}, clients...), "./src/generated.ts"), got.List)
	})

	t.Run("list", func(t *testing.T) {
		e := Entry{List: []string{"./src/main.ts"}}
		got := e.Prepend(clients)
		assert.Equal(t, append(append([]string{}, clients...), "./src/main.ts"), got.List)
	})
}

func TestEntryMaterialize(t *testing.T) {
	e := Entry{Factory: func(prepend []string) Entry { return NamedEntry("app", "./a.ts") }}
	assert.Equal(t, []string{"app"}, e.Materialize().Names())
	assert.True(t, Entry{}.IsZero())
}
