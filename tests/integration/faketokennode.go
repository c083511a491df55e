package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"
)

// fakeTokenNode simulates the external token node's HTTP API: mint and
// account reads plus the atomic transfer primitive.
type fakeTokenNode struct {
	mu       sync.Mutex
	mints    map[domain.Address]domain.Mint
	accounts map[domain.Address]*domain.TokenAccount
	server   *httptest.Server
}

func newFakeTokenNode() *fakeTokenNode {
	n := &fakeTokenNode{
		mints:    make(map[domain.Address]domain.Mint),
		accounts: make(map[domain.Address]*domain.TokenAccount),
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.handle))
	return n
}

func (n *fakeTokenNode) close() {
	n.server.Close()
}

func (n *fakeTokenNode) addMint(m domain.Mint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mints[m.Address] = m
}

func (n *fakeTokenNode) addAccount(a domain.TokenAccount) {
	n.mu.Lock()
	defer n.mu.Unlock()
	cp := a
	n.accounts[a.Address] = &cp
}

func (n *fakeTokenNode) balance(address domain.Address) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if a, ok := n.accounts[address]; ok {
		return a.Amount
	}
	return -1
}

func (n *fakeTokenNode) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/health":
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/mints/"):
		addr := domain.Address(strings.TrimPrefix(r.URL.Path, "/v1/mints/"))
		n.mu.Lock()
		mint, ok := n.mints[addr]
		n.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(mint)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/accounts/"):
		addr := domain.Address(strings.TrimPrefix(r.URL.Path, "/v1/accounts/"))
		n.mu.Lock()
		account, ok := n.accounts[addr]
		var cp domain.TokenAccount
		if ok {
			cp = *account
		}
		n.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(cp)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/transfers":
		var transfer ports.TokenTransfer
		if err := json.NewDecoder(r.Body).Decode(&transfer); err != nil {
			http.Error(w, "bad transfer body", http.StatusBadRequest)
			return
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		src, okSrc := n.accounts[transfer.Source]
		dst, okDst := n.accounts[transfer.Destination]
		if !okSrc || !okDst {
			http.Error(w, "unknown account", http.StatusNotFound)
			return
		}
		if src.Amount < transfer.Amount {
			http.Error(w, "insufficient funds", http.StatusUnprocessableEntity)
			return
		}
		src.Amount -= transfer.Amount
		dst.Amount += transfer.Amount
		w.WriteHeader(http.StatusAccepted)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
