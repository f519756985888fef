package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// OracleStats counts the RPCs an oracle has served
type OracleStats struct {
	Queries       uint64 // Query RPCs, including mutations
	Mutations     uint64 // Query RPCs carrying at least one mutation
	Commits       uint64 // Successful commits, inline or via CommitOrAbort
	Aborts        uint64 // CommitOrAbort calls asking for an abort
	Conflicts     uint64 // Commits rejected because of a write-write conflict
	Finalizes     uint64 // CommitOrAbort calls
	CheckVersions uint64
	Alters        uint64
}

// OracleAdapter plays the server side of the transaction protocol. It hands out
// timestamps, derives conflict keys from mutations and detects conflicts at commit.
// It does not store any graph data.
type OracleAdapter struct {
	version string

	mu        sync.Mutex
	nextTs    uint64
	keyCommit map[string]uint64 // conflict key -> latest commit ts

	nextUid   atomic.Uint64
	roundTrip atomic.Uint64
	finalized *xsync.MapOf[uint64, bool] // start ts -> committed

	queries, mutations, commits, aborts    atomic.Uint64
	conflicts, finalizes, checks, alters atomic.Uint64
}

// NewOracleAdapter creates an oracle reporting the given version tag
func NewOracleAdapter(version string) *OracleAdapter {
	return &OracleAdapter{
		version:   version,
		nextTs:    1,
		keyCommit: make(map[string]uint64),
		finalized: xsync.NewMapOf[uint64, bool](),
	}
}

// Stats returns a snapshot of the RPC counters
func (o *OracleAdapter) Stats() OracleStats {
	return OracleStats{
		Queries:       o.queries.Load(),
		Mutations:     o.mutations.Load(),
		Commits:       o.commits.Load(),
		Aborts:        o.aborts.Load(),
		Conflicts:     o.conflicts.Load(),
		Finalizes:     o.finalizes.Load(),
		CheckVersions: o.checks.Load(),
		Alters:        o.alters.Load(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRPCServerAdapter)
// --------------------------------------------------------------------------

func (o *OracleAdapter) Handle(req *common.Message) *common.Message {
	switch req.MsgType {
	case common.MsgTQuery:
		resp, err := o.query(req.Request)
		return common.NewQueryResponse(resp, err)
	case common.MsgTCheckVersion:
		o.checks.Add(1)
		return common.NewCheckVersionResponse(o.version, nil)
	case common.MsgTCommitOrAbort:
		txn, err := o.commitOrAbort(req.Txn)
		return common.NewCommitOrAbortResponse(txn, err)
	case common.MsgTAlter:
		payload, err := o.alter(req.Operation)
		return common.NewAlterResponse(payload, err)
	default:
		return common.NewErrorResponse(common.StatusUnimplemented,
			fmt.Sprintf("oracle: unsupported message type: %s", req.MsgType))
	}
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

func (o *OracleAdapter) query(req *common.Request) (*common.Response, error) {
	start := time.Now()
	o.queries.Add(1)

	if req == nil {
		return nil, common.NewStatusError(common.StatusInvalidArgument, "empty request")
	}
	if req.BestEffort && !req.ReadOnly {
		return nil, common.NewStatusError(common.StatusInvalidArgument, "best effort queries must be read-only")
	}
	if len(req.Mutations) > 0 && req.ReadOnly {
		return nil, common.NewStatusError(common.StatusInvalidArgument, "mutations are not allowed in read-only requests")
	}
	if req.StartTs != 0 {
		if _, done := o.finalized.Load(req.StartTs); done {
			return nil, common.NewStatusError(common.StatusFailedPrecondition, "transaction %d has already been finalized", req.StartTs)
		}
	}

	startTs := req.StartTs
	if startTs == 0 {
		startTs = o.assignTs()
	}
	assigned := time.Now()

	uids := make(map[string]string)
	var keys, preds []string
	for _, mu := range req.Mutations {
		if mu == nil {
			continue
		}
		k, p, err := o.conflictSet(mu, uids)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
		preds = append(preds, p...)
	}
	keys, preds = dedup(keys), dedup(preds)

	txn := &common.TxnContext{
		StartTs: startTs,
		Keys:    keys,
		Preds:   preds,
		Hash:    o.nextHash(startTs),
	}

	if len(req.Mutations) > 0 {
		o.mutations.Add(1)

		if req.CommitNow {
			commitTs, err := o.commit(startTs, keys)
			if err != nil {
				return nil, err
			}
			txn.CommitTs = commitTs
		}
	}

	resp := &common.Response{
		Json: []byte("{}"),
		Txn:  txn,
		Latency: &common.Latency{
			AssignTimestampNs: uint64(assigned.Sub(start).Nanoseconds()),
			ProcessingNs:      uint64(time.Since(assigned).Nanoseconds()),
			TotalNs:           uint64(time.Since(start).Nanoseconds()),
		},
		Metrics: &common.Metrics{NumUids: map[string]uint64{"_total": uint64(len(uids))}},
	}
	if len(uids) > 0 {
		resp.Uids = uids
	}
	return resp, nil
}

func (o *OracleAdapter) commitOrAbort(txn *common.TxnContext) (*common.TxnContext, error) {
	o.finalizes.Add(1)

	if txn == nil || txn.StartTs == 0 {
		return nil, common.NewStatusError(common.StatusInvalidArgument, "missing start ts")
	}
	if committed, done := o.finalized.Load(txn.StartTs); done {
		return nil, common.NewStatusError(common.StatusFailedPrecondition,
			"transaction %d has already been finalized (committed: %t)", txn.StartTs, committed)
	}

	if txn.Aborted {
		o.aborts.Add(1)
		o.finalized.Store(txn.StartTs, false)
		return &common.TxnContext{StartTs: txn.StartTs, Aborted: true}, nil
	}

	commitTs, err := o.commit(txn.StartTs, txn.Keys)
	if err != nil {
		return nil, err
	}
	return &common.TxnContext{StartTs: txn.StartTs, CommitTs: commitTs}, nil
}

func (o *OracleAdapter) alter(op *common.Operation) (*common.Payload, error) {
	o.alters.Add(1)

	if op == nil {
		return nil, common.NewStatusError(common.StatusInvalidArgument, "empty operation")
	}
	if op.DropAll || op.DropOp == common.DropOpAll || op.DropOp == common.DropOpData {
		o.mu.Lock()
		o.keyCommit = make(map[string]uint64)
		o.mu.Unlock()
	}
	return &common.Payload{Data: []byte("Success")}, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (o *OracleAdapter) assignTs() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	ts := o.nextTs
	o.nextTs++
	return ts
}

// commit checks the keys against every transaction committed after startTs.
// On success the keys are stamped with a fresh commit ts.
func (o *OracleAdapter) commit(startTs uint64, keys []string) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, key := range keys {
		if last, ok := o.keyCommit[key]; ok && last > startTs {
			o.conflicts.Add(1)
			o.finalized.Store(startTs, false)
			return 0, common.NewStatusError(common.StatusAborted, "transaction has been aborted. Please retry")
		}
	}

	commitTs := o.nextTs
	o.nextTs++
	for _, key := range keys {
		o.keyCommit[key] = commitTs
	}

	o.commits.Add(1)
	o.finalized.Store(startTs, true)
	return commitTs, nil
}

// nextHash returns a new opaque hash for every round trip
func (o *OracleAdapter) nextHash(startTs uint64) string {
	return strconv.FormatUint(fingerprint(strconv.FormatUint(o.roundTrip.Add(1), 10), startTs), 36)
}

// conflictKey identifies one predicate of one node
func conflictKey(subject, predicate string) string {
	return strconv.FormatUint(fingerprint(subject+"\x00"+predicate, 0), 16)
}

// conflictSet derives the conflict keys and predicates a mutation touches.
// Blank nodes of set operations get a fresh uid recorded in uids.
func (o *OracleAdapter) conflictSet(mu *common.Mutation, uids map[string]string) (keys, preds []string, err error) {
	add := func(subject, predicate string, assign bool) {
		if predicate == "" || predicate == "*" {
			predicate = "*"
		} else {
			preds = append(preds, predicate)
		}
		keys = append(keys, conflictKey(o.resolve(subject, uids, assign), predicate))
	}

	for _, nq := range mu.Set {
		if nq != nil {
			add(nq.Subject, nq.Predicate, true)
		}
	}
	for _, nq := range mu.Del {
		if nq != nil {
			add(nq.Subject, nq.Predicate, false)
		}
	}

	for _, src := range []struct {
		data   []byte
		assign bool
	}{{mu.SetNquads, true}, {mu.DelNquads, false}} {
		if err := parseNquads(src.data, func(s, p string) { add(s, p, src.assign) }); err != nil {
			return nil, nil, err
		}
	}

	for _, src := range []struct {
		data   []byte
		assign bool
	}{{mu.SetJson, true}, {mu.DeleteJson, false}} {
		if err := parseJSON(src.data, func(s, p string) { add(s, p, src.assign) }); err != nil {
			return nil, nil, err
		}
	}

	return keys, preds, nil
}

// resolve maps a blank node to its uid, assigning one if needed
func (o *OracleAdapter) resolve(subject string, uids map[string]string, assign bool) string {
	name, ok := strings.CutPrefix(subject, "_:")
	if !ok {
		return subject
	}
	if uid, ok := uids[name]; ok {
		return uid
	}
	if !assign {
		return subject
	}
	uid := fmt.Sprintf("0x%x", o.nextUid.Add(1))
	uids[name] = uid
	return uid
}

// parseNquads calls fn with subject and predicate of every statement.
// Only the first two terms of a statement are looked at.
func parseNquads(data []byte, fn func(subject, predicate string)) error {
	if len(data) == 0 {
		return nil
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; scanner.Scan(); line++ {
		stmt := strings.TrimSpace(scanner.Text())
		if stmt == "" || strings.HasPrefix(stmt, "#") {
			continue
		}
		fields := strings.Fields(stmt)
		if len(fields) < 3 {
			return common.NewStatusError(common.StatusInvalidArgument, "invalid nquad on line %d: %q", line, stmt)
		}
		fn(trimIRI(fields[0]), trimIRI(fields[1]))
	}
	return scanner.Err()
}

func trimIRI(term string) string {
	return strings.TrimSuffix(strings.TrimPrefix(term, "<"), ">")
}

// parseJSON calls fn with subject and predicate of every attribute of every object.
// Objects without uid get an anonymous blank node.
func parseJSON(data []byte, fn func(subject, predicate string)) error {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewStatusError(common.StatusInvalidArgument, "invalid json mutation: %v", err)
	}

	anon := 0
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			subject, _ := t["uid"].(string)
			if subject == "" {
				anon++
				subject = fmt.Sprintf("_:anon%d", anon)
			}
			attrs := make([]string, 0, len(t))
			for attr := range t {
				if attr != "uid" {
					attrs = append(attrs, attr)
				}
			}
			sort.Strings(attrs)
			for _, attr := range attrs {
				fn(subject, attr)
				walk(t[attr])
			}
		}
	}
	walk(v)
	return nil
}

// dedup sorts list and removes duplicates in place
func dedup(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	sort.Strings(list)
	out := list[:1]
	for _, s := range list[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
