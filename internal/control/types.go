package control

import (
	"time"

	"github.com/five82/notebook/internal/filesync"
	"github.com/five82/notebook/internal/state"
)

// StatusResponse mirrors the payload returned by /api/status and pushed on
// /api/status/stream.
type StatusResponse struct {
	Enabled          bool       `json:"enabled"`
	Setup            bool       `json:"setup"`
	LastSync         *time.Time `json:"lastSync,omitempty"`
	Error            string     `json:"error,omitempty"`
	SyncCount        int        `json:"syncCount"`
	LastPassFailures int        `json:"lastPassFailures"`
	Backend          string     `json:"backend"`
	State            string     `json:"state"`
	Phase            string     `json:"phase"`
}

// NewStatusResponse converts a status snapshot to its wire form.
func NewStatusResponse(st state.SyncStatus) StatusResponse {
	resp := StatusResponse{
		Enabled:          st.IsEnabled,
		Setup:            st.IsSetup,
		Error:            st.Error,
		SyncCount:        st.SyncCount,
		LastPassFailures: st.LastPassFailures,
		Backend:          st.Backend,
		State:            string(st.State),
		Phase:            string(st.Phase),
	}
	if st.HasSynced() {
		last := st.LastSync
		resp.LastSync = &last
	}
	return resp
}

// SyncStatus converts the wire form back to a status snapshot.
func (r StatusResponse) SyncStatus() state.SyncStatus {
	st := state.SyncStatus{
		IsEnabled:        r.Enabled,
		IsSetup:          r.Setup,
		Error:            r.Error,
		SyncCount:        r.SyncCount,
		LastPassFailures: r.LastPassFailures,
		Backend:          r.Backend,
		State:            state.SessionState(r.State),
		Phase:            state.Phase(r.Phase),
	}
	if r.LastSync != nil {
		st.LastSync = *r.LastSync
	}
	return st
}

// CapabilitiesResponse mirrors /api/capabilities.
type CapabilitiesResponse struct {
	Supported     bool  `json:"supported"`
	Sandboxed     bool  `json:"sandboxed"`
	UserSelection bool  `json:"userSelection"`
	DelayMS       int64 `json:"delayMs"`
}

// SetupRequest is the body of POST /api/setup. A non-empty Directory selects
// the user-selected backend with that path.
type SetupRequest struct {
	ForceManual bool   `json:"forceManual"`
	Directory   string `json:"directory,omitempty"`
}

// SetupResponse reports whether a directory was acquired.
type SetupResponse struct {
	OK     bool           `json:"ok"`
	Status StatusResponse `json:"status"`
}

// SyncResponse reports the result of POST /api/sync.
type SyncResponse struct {
	Written int            `json:"written"`
	Failed  int            `json:"failed"`
	Errors  []string       `json:"errors,omitempty"`
	Status  StatusResponse `json:"status"`
}

// FilesResponse mirrors /api/files.
type FilesResponse struct {
	Files []filesync.FileInfo `json:"files"`
}

// ErrorResponse is returned with every 4xx/5xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
