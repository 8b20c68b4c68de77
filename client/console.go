package client

import (
	"fmt"
	"io"
	"sync"

	fa "github.com/panyam/fireauth"
)

// Console stands in for the login page in a terminal: it remembers which
// elements are hidden and reports navigation on Out.
type Console struct {
	Out io.Writer

	mu       sync.Mutex
	hidden   map[string]bool
	location string
}

func NewConsole(out io.Writer) *Console {
	return &Console{Out: out, hidden: make(map[string]bool)}
}

func (c *Console) SetHidden(elementID string, hidden bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hidden == nil {
		c.hidden = make(map[string]bool)
	}
	c.hidden[elementID] = hidden
}

func (c *Console) Hidden(elementID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hidden[elementID]
}

func (c *Console) Navigate(path string) {
	c.mu.Lock()
	c.location = path
	c.mu.Unlock()
	fmt.Fprintf(c.Out, "-> %s\n", path)
}

// Location is the last path navigated to
func (c *Console) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// PrintState describes a view state the way the page would show it.
func (c *Console) PrintState(state fa.ViewState) {
	if state.LoggedIn {
		fmt.Fprintln(c.Out, "signed in (login box hidden, sign out visible)")
	} else {
		fmt.Fprintln(c.Out, "signed out (login box visible, sign out hidden)")
	}
}
