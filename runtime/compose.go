package runtime

import "sync"

// Compose holds the text being typed for the active room.
type Compose struct {
	mu   sync.Mutex
	text string
}

func (c *Compose) Set(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
}

func (c *Compose) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func (c *Compose) Clear() {
	c.Set("")
}
