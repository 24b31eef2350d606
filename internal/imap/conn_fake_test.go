package imap

import (
	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/responses"
)

// fakeConn implements the conn interface with per-command call counting so
// tests can assert which commands a strategy actually issued.
type fakeConn struct {
	caps   map[string]bool
	capErr error

	threads   []*sortthread.Thread
	threadErr error

	selectErr map[string]error

	searchResult []uint32
	searchErr    error

	executeIds []uint32
	executeErr error

	// fetchHandler serves UidFetch calls. When nil the channel is closed
	// without delivering any message.
	fetchHandler func(seqSet *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error

	capabilityCalls int
	threadCalls     int
	selectCalls     []string
	searchCalls     int
	executeCalls    int
	executeCmds     []*imap.Command
	fetchCalls      int
	logoutCalls     int
}

func newFakeConn() *fakeConn {
	return &fakeConn{caps: map[string]bool{}, selectErr: map[string]error{}}
}

func (f *fakeConn) totalCalls() int {
	return f.capabilityCalls + f.threadCalls + len(f.selectCalls) + f.searchCalls + f.executeCalls + f.fetchCalls
}

func (f *fakeConn) Capability() (map[string]bool, error) {
	f.capabilityCalls++
	return f.caps, f.capErr
}

func (f *fakeConn) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	f.selectCalls = append(f.selectCalls, name)
	if err := f.selectErr[name]; err != nil {
		return nil, err
	}
	return &imap.MailboxStatus{Name: name, ReadOnly: readOnly}, nil
}

func (f *fakeConn) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	f.searchCalls++
	return f.searchResult, f.searchErr
}

func (f *fakeConn) UidFetch(seqSet *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	f.fetchCalls++
	if f.fetchHandler == nil {
		close(ch)
		return nil
	}
	return f.fetchHandler(seqSet, items, ch)
}

func (f *fakeConn) UidThread(algorithm sortthread.ThreadAlgorithm, criteria *imap.SearchCriteria) ([]*sortthread.Thread, error) {
	f.threadCalls++
	return f.threads, f.threadErr
}

func (f *fakeConn) Execute(cmdr imap.Commander, h responses.Handler) (*imap.StatusResp, error) {
	f.executeCalls++
	f.executeCmds = append(f.executeCmds, cmdr.Command())
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	if search, ok := h.(*responses.Search); ok {
		search.Ids = append(search.Ids, f.executeIds...)
	}
	return &imap.StatusResp{Type: imap.StatusRespOk}, nil
}

func (f *fakeConn) Logout() error {
	f.logoutCalls++
	return nil
}

// isFetchFor reports whether a fetch item list contains the given item.
func isFetchFor(items []imap.FetchItem, want imap.FetchItem) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
