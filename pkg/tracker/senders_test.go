package tracker

import (
	"testing"
)

func TestSplitSender(t *testing.T) {
	testCases := []struct {
		sender  string
		address string
		domain  string
	}{
		{"Alice <Alice@Example.com>", "alice@example.com", "example.com"},
		{"bob@host.org", "bob@host.org", "host.org"},
		{"\"Spam King\" <king@spam.biz>", "king@spam.biz", "spam.biz"},
		{"MAILER-DAEMON", "mailer-daemon", ""},
		{"  ", "", ""},
	}
	for _, tc := range testCases {
		address, domain := SplitSender(tc.sender)
		if address != tc.address || domain != tc.domain {
			t.Errorf("SplitSender(%q) = (%q, %q), expected (%q, %q)",
				tc.sender, address, domain, tc.address, tc.domain)
		}
	}
}

func TestSenderTracker(t *testing.T) {
	st := NewSenderTracker()
	st.Track("King <king@spam.biz>", true)
	st.Track("king@spam.biz", true)
	st.Track("queen@spam.biz", false)
	st.Track("alice@example.com", false)
	st.Track("", true)

	if st.Len() != 3 {
		t.Errorf("expected 3 senders, got %d", st.Len())
	}

	king := st.GetSenderStats("KING@spam.biz")
	if king == nil || king.Spam != 2 || king.SpamRatio() != 1 {
		t.Fatalf("unexpected stats for king: %+v", king)
	}
	if st.GetSenderStats("nobody@x") != nil {
		t.Error("unknown sender should return nil")
	}

	senders := st.TopSenders(1)
	if len(senders) != 1 || senders[0].Address != "king@spam.biz" {
		t.Errorf("unexpected top sender %v", senders)
	}

	domains := st.TopDomains(0)
	if len(domains) != 2 || domains[0].Domain != "spam.biz" || domains[0].Total() != 3 {
		t.Errorf("unexpected domains %v", domains)
	}
	if r := domains[0].SpamRatio(); r < 0.66 || r > 0.67 {
		t.Errorf("unexpected domain spam ratio %f", r)
	}
}
