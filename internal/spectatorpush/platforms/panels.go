package platforms

import (
	"strings"
	"sync"
)

// panelIDs maps endpoint+panel key to the platform message id.
type panelIDs struct {
	mu   sync.Mutex
	byID map[string]string
}

func newPanelIDs() *panelIDs {
	return &panelIDs{byID: map[string]string{}}
}

func panelKey(endpoint, key string) string {
	return strings.TrimSpace(endpoint) + "|" + strings.TrimSpace(key)
}

func (p *panelIDs) get(endpoint, key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[panelKey(endpoint, key)]
}

func (p *panelIDs) set(endpoint, key, msgID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[panelKey(endpoint, key)] = msgID
}

func (p *panelIDs) forget(endpoint, key string) {
	k := panelKey(endpoint, key)
	if k == "|" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, k)
}

func (p *panelIDs) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}
