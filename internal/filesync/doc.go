// Package filesync mirrors note collections into a directory as Markdown
// files. A Session chooses a storage backend (a private sandboxed directory
// or one the user picks), debounces change notifications into write passes
// and publishes progress on a state.Store. Each pass writes one file per
// note plus a README.md index; file-level failures are counted, while an
// unreachable directory fails the whole pass and drops the handle so the
// next pass re-acquires it.
package filesync
