// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import "sync"

// publications remembers the last payload sent per topic
type publications struct {
	mu   sync.Mutex
	last map[string]string
}

func newPublications() *publications {
	return &publications{last: make(map[string]string)}
}

func (p *publications) changed(topic, payload string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.last[topic]
	return !ok || last != payload
}

func (p *publications) store(topic, payload string) {
	p.mu.Lock()
	p.last[topic] = payload
	p.mu.Unlock()
}

// forget forces the next publication of topic
func (p *publications) forget(topic string) {
	p.mu.Lock()
	delete(p.last, topic)
	p.mu.Unlock()
}

func (p *publications) clear() {
	p.mu.Lock()
	clear(p.last)
	p.mu.Unlock()
}
