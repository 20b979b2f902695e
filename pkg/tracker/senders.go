// Package tracker aggregates per-sender label counts across a corpus.
package tracker

import (
	"cmp"
	"slices"
	"strings"
	"sync"
)

// SenderStats holds the label counts for one sender address.
type SenderStats struct {
	Address string
	Domain  string
	Spam    int
	Ham     int
}

// Total returns the number of messages seen from the sender.
func (s SenderStats) Total() int {
	return s.Spam + s.Ham
}

// SpamRatio returns the share of spam messages.
func (s SenderStats) SpamRatio() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Spam) / float64(s.Total())
}

// SenderTracker counts spam and ham messages per sender and per domain.
type SenderTracker struct {
	mu      sync.RWMutex
	senders map[string]*SenderStats
	domains map[string]*SenderStats
}

// NewSenderTracker creates an empty tracker.
func NewSenderTracker() *SenderTracker {
	return &SenderTracker{
		senders: make(map[string]*SenderStats),
		domains: make(map[string]*SenderStats),
	}
}

// Track records one message. Empty senders are ignored.
func (st *SenderTracker) Track(sender string, isSpam bool) {
	address, domain := SplitSender(sender)
	if address == "" {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	bump(st.senders, address, address, domain, isSpam)
	if domain != "" {
		bump(st.domains, domain, "", domain, isSpam)
	}
}

func bump(m map[string]*SenderStats, key, address, domain string, isSpam bool) {
	stats, ok := m[key]
	if !ok {
		stats = &SenderStats{Address: address, Domain: domain}
		m[key] = stats
	}
	if isSpam {
		stats.Spam++
	} else {
		stats.Ham++
	}
}

// GetSenderStats returns a copy of the stats for sender, or nil.
func (st *SenderTracker) GetSenderStats(sender string) *SenderStats {
	address, _ := SplitSender(sender)

	st.mu.RLock()
	defer st.mu.RUnlock()
	if stats, ok := st.senders[address]; ok {
		statsCopy := *stats
		return &statsCopy
	}
	return nil
}

// TopSenders returns the n senders with the most messages.
func (st *SenderTracker) TopSenders(n int) []SenderStats {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return top(st.senders, n)
}

// TopDomains returns the n domains with the most messages.
func (st *SenderTracker) TopDomains(n int) []SenderStats {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return top(st.domains, n)
}

// Len returns the number of distinct sender addresses.
func (st *SenderTracker) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.senders)
}

// top sorts by total descending, then key, so output is reproducible.
func top(m map[string]*SenderStats, n int) []SenderStats {
	out := make([]SenderStats, 0, len(m))
	for _, stats := range m {
		out = append(out, *stats)
	}
	slices.SortFunc(out, func(a, b SenderStats) int {
		if c := cmp.Compare(b.Total(), a.Total()); c != 0 {
			return c
		}
		return strings.Compare(a.Address+a.Domain, b.Address+b.Domain)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SplitSender extracts the lowercased address and domain from a From
// header value such as `"Name" <user@host>`.
func SplitSender(sender string) (address, domain string) {
	address = strings.TrimSpace(sender)
	if open := strings.LastIndex(address, "<"); open >= 0 {
		if end := strings.Index(address[open:], ">"); end > 0 {
			address = address[open+1 : open+end]
		}
	}
	address = strings.ToLower(strings.Trim(address, " \"'"))
	if at := strings.LastIndex(address, "@"); at >= 0 {
		domain = address[at+1:]
	}
	return address, domain
}
