package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/ismail180205/HippoMind/internal/cluster"
	hmerrors "github.com/ismail180205/HippoMind/internal/errors"
	"github.com/ismail180205/HippoMind/internal/llm"
	"github.com/ismail180205/HippoMind/internal/search"
)

// answerLabelLimit caps the nav node label derived from an answer.
const answerLabelLimit = 40

// sessionState is the full mutable narrowing state. Operations build a
// candidate next state off to the side and commit it in one assignment,
// so a failed sub-call never leaves a half-applied mutation.
type sessionState struct {
	status          Status
	round           int
	files           []search.FileScore
	chunksOf        map[string][]string
	clusters        []cluster.Cluster
	remainingFiles  []string
	foundFile       string
	foundSummary    string
	conversation    []llm.QA
	followupCount   int
	pendingQuestion string
}

// clone deep-copies the state.
func (s sessionState) clone() sessionState {
	out := s
	out.files = append([]search.FileScore(nil), s.files...)
	out.chunksOf = make(map[string][]string, len(s.chunksOf))
	for file, ids := range s.chunksOf {
		out.chunksOf[file] = append([]string(nil), ids...)
	}
	out.clusters = append([]cluster.Cluster(nil), s.clusters...)
	out.remainingFiles = append([]string(nil), s.remainingFiles...)
	out.conversation = append([]llm.QA(nil), s.conversation...)
	return out
}

func (s sessionState) fileNames() []string {
	names := make([]string, len(s.files))
	for i, fs := range s.files {
		names[i] = fs.File
	}
	return names
}

func (s sessionState) totalChunks() int {
	n := 0
	for _, ids := range s.chunksOf {
		n += len(ids)
	}
	return n
}

// Session is one interactive narrowing search.
type Session struct {
	ID            string
	Query         string
	ExpandedQuery string
	CreatedAt     time.Time

	deps deps

	// mu serializes mutating operations. Reads go through the
	// committed snapshot and never take the lock.
	mu       sync.Mutex
	state    sessionState
	tree     *navTree
	snapshot atomic.Pointer[Snapshot]

	lastActive atomic.Int64 // unix nanos
}

// deps bundles the collaborators every operation needs.
type deps struct {
	retriever    Retriever
	clusterer    Clusterer
	points       PointLoader
	questioner   Questioner
	maxFollowups int
}

// newSession runs the initial retrieval round and builds the root of
// the navigation tree.
func newSession(ctx context.Context, id, query string, d deps) (*Session, error) {
	result, err := d.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:            id,
		Query:         result.Query,
		ExpandedQuery: result.ExpandedQuery,
		CreatedAt:     time.Now(),
		deps:          d,
	}

	state := sessionState{
		round:    0,
		files:    result.Files,
		chunksOf: result.ChunksOf,
	}

	if result.DirectMatch != nil {
		state.status = StatusFound
		state.foundFile = result.DirectMatch.File
		state.foundSummary = s.summaryOf(ctx, state.foundFile)
		if state.foundSummary == "" {
			state.foundSummary = result.DirectExcerpt
		}
	} else if err := s.classify(ctx, &state); err != nil {
		return nil, err
	}

	s.state = state
	s.tree = newNavTree(result.Query, state)
	s.touch()
	s.commit()
	return s, nil
}

// classify clusters the candidate set and sets the resulting status
// (clusters, found, or exhausted) on state.
func (s *Session) classify(ctx context.Context, state *sessionState) error {
	state.clusters = nil
	state.remainingFiles = nil
	state.foundFile = ""
	state.foundSummary = ""

	if len(state.files) == 0 {
		state.status = StatusExhausted
		return nil
	}
	if len(state.files) == 1 {
		state.status = StatusFound
		state.foundFile = state.files[0].File
		state.foundSummary = s.summaryOf(ctx, state.foundFile)
		return nil
	}

	points, err := s.deps.points.LoadPoints(ctx, state.chunksOf)
	if err != nil {
		return err
	}

	outcome, err := s.deps.clusterer.Cluster(ctx, points)
	if err != nil {
		return hmerrors.Wrap(hmerrors.ErrCodeClusteringFailed, err)
	}

	if outcome.Exhausted {
		state.status = StatusExhausted
		state.remainingFiles = outcome.RemainingFiles
		return nil
	}

	state.status = StatusClusters
	state.clusters = outcome.Clusters
	return nil
}

// Pick narrows the session to the chosen cluster's files.
func (s *Session) Pick(ctx context.Context, clusterID int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state.status != StatusClusters {
		return nil, hmerrors.InvalidTransition(
			fmt.Sprintf("cannot pick a cluster while status is %q", s.state.status))
	}

	var chosen *cluster.Cluster
	for i := range s.state.clusters {
		if s.state.clusters[i].ID == clusterID {
			chosen = &s.state.clusters[i]
			break
		}
	}
	if chosen == nil {
		return nil, hmerrors.New(hmerrors.ErrCodeUnknownCluster,
			fmt.Sprintf("cluster %d does not exist in round %d", clusterID, s.state.round), nil)
	}

	next := s.state.clone()
	next.round++
	narrowTo(&next, chosen.Files)

	if err := s.classify(ctx, &next); err != nil {
		return nil, err
	}

	s.state = next
	s.tree.append(chosen.Label, next)
	s.commit()
	return s.snapshot.Load(), nil
}

// AskForHelp switches to follow-up mode with a generated question.
func (s *Session) AskForHelp(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state.status != StatusClusters && s.state.status != StatusExhausted {
		return nil, hmerrors.InvalidTransition(
			fmt.Sprintf("cannot ask for help while status is %q", s.state.status))
	}

	summaries, err := s.deps.retriever.FileSummaries(ctx, s.state.fileNames())
	if err != nil {
		return nil, err
	}

	// Question generation degrades to a canned fallback inside the
	// generator; an error here is unexpected but still non-fatal.
	question, err := s.deps.questioner.FollowupQuestion(
		ctx, summaries, s.state.conversation, s.state.followupCount+1, s.deps.maxFollowups)
	if err != nil || strings.TrimSpace(question) == "" {
		question = llm.FallbackQuestion
	}

	next := s.state.clone()
	next.status = StatusFollowup
	next.pendingQuestion = question
	next.clusters = nil
	next.remainingFiles = nil

	s.state = next
	s.tree.updateCurrent(next)
	s.commit()
	return s.snapshot.Load(), nil
}

// AnswerFollowup rescores the candidate set with the answer. Hitting
// the follow-up ceiling forces a found resolution on the top-scored
// file; otherwise the narrowed set is re-clustered like a pick.
func (s *Session) AnswerFollowup(ctx context.Context, answer string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state.status != StatusFollowup {
		return nil, hmerrors.InvalidTransition(
			fmt.Sprintf("cannot answer while status is %q", s.state.status))
	}
	if s.state.pendingQuestion == "" {
		return nil, hmerrors.InvalidTransition("no pending question to answer")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, hmerrors.ValidationError("answer must not be empty", nil)
	}

	next := s.state.clone()
	next.conversation = append(next.conversation, llm.QA{Question: next.pendingQuestion, Answer: answer})
	next.pendingQuestion = ""
	next.followupCount++
	next.round++

	// Rescore against every answer given so far; the candidate set
	// only ever shrinks.
	var answers []string
	for _, qa := range next.conversation {
		answers = append(answers, qa.Answer)
	}
	kept, err := s.deps.retriever.Rescore(ctx, strings.Join(answers, " "), next.chunksOf)
	if err != nil {
		return nil, err
	}
	next.files = kept
	narrowTo(&next, next.fileNames())

	if next.followupCount >= s.deps.maxFollowups && len(next.files) > 1 {
		next.status = StatusFound
		next.clusters = nil
		next.remainingFiles = nil
		next.foundFile = next.files[0].File
		next.foundSummary = s.summaryOf(ctx, next.foundFile)
	} else if err := s.classify(ctx, &next); err != nil {
		return nil, err
	}

	s.state = next
	s.tree.append(terse(answer), next)
	s.commit()
	return s.snapshot.Load(), nil
}

// Backtrack restores the state frozen at the given navigation node.
// Backtracking to the current node is a no-op; no node is ever removed.
func (s *Session) Backtrack(ctx context.Context, nodeID int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	node := s.tree.node(nodeID)
	if node == nil {
		return nil, hmerrors.New(hmerrors.ErrCodeUnknownNavNode,
			fmt.Sprintf("navigation node %d does not exist", nodeID), nil)
	}

	if nodeID == s.tree.current {
		return s.snapshot.Load(), nil
	}

	s.state = node.frozen.clone()
	s.tree.moveTo(nodeID)
	s.commit()
	return s.snapshot.Load(), nil
}

// Snapshot returns the latest committed snapshot without locking.
func (s *Session) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// LastActive reports when the session was last touched.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// commit publishes the current state as an immutable snapshot.
// Must be called with mu held (or during construction).
func (s *Session) commit() {
	st := s.state
	snap := &Snapshot{
		SessionID:      s.ID,
		CreatedAt:      s.CreatedAt,
		Status:         st.status,
		Round:          st.round,
		Query:          s.Query,
		ExpandedQuery:  s.ExpandedQuery,
		TotalChunks:    st.totalChunks(),
		Files:          st.fileNames(),
		FileScores:     append([]search.FileScore(nil), st.files...),
		Conversation:   append([]llm.QA(nil), st.conversation...),
		NavTree:        s.tree.view(),
		CurrentNavNode: s.tree.current,
	}

	switch st.status {
	case StatusClusters:
		snap.Clusters = append([]cluster.Cluster(nil), st.clusters...)
	case StatusFollowup:
		snap.PendingQuestion = st.pendingQuestion
		snap.FollowupCount = st.followupCount
		snap.MaxFollowups = s.deps.maxFollowups
	case StatusFound:
		snap.FoundFile = st.foundFile
		snap.FoundSummary = st.foundSummary
	case StatusExhausted:
		snap.RemainingFiles = append([]string(nil), st.remainingFiles...)
	}

	s.snapshot.Store(snap)
}

// summaryOf fetches a found file's stored summary, best effort.
func (s *Session) summaryOf(ctx context.Context, file string) string {
	summaries, err := s.deps.retriever.FileSummaries(ctx, []string{file})
	if err != nil {
		return ""
	}
	return summaries[file]
}

// narrowTo restricts the candidate set to the given files, preserving
// score order.
func narrowTo(state *sessionState, files []string) {
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f] = true
	}

	var kept []search.FileScore
	for _, fs := range state.files {
		if keep[fs.File] {
			kept = append(kept, fs)
		}
	}
	state.files = kept

	chunksOf := make(map[string][]string, len(kept))
	for _, fs := range kept {
		chunksOf[fs.File] = state.chunksOf[fs.File]
	}
	state.chunksOf = chunksOf
}

// terse shortens an answer into a navigation label, cutting on a rune
// boundary so the label stays valid UTF-8.
func terse(answer string) string {
	answer = strings.Join(strings.Fields(answer), " ")
	if len(answer) <= answerLabelLimit {
		return answer
	}
	cut := answerLabelLimit
	for cut > 0 && !utf8.RuneStart(answer[cut]) {
		cut--
	}
	return answer[:cut] + "…"
}
