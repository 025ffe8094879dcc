package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"briefme/internal/core"
	"briefme/internal/email"
	"briefme/internal/ingest"
	"briefme/internal/persistence"
)

// fakeDB is an in-memory persistence.Database for runner tests.
type fakeDB struct {
	workspaces []core.Workspace
	sources    []core.VoiceSource
	posts      []core.Post
	clients    []core.Client
	links      []core.ClientVoiceLink
	digests    []core.Digest
	runLogs    []core.RunLog
	signups    []core.BetaSignup

	avatarUpdates map[string]string
	nameUpdates   map[string]string

	listSourcesErr  error
	createPostsErr  error
	createDigestErr error
	listClientsErr  error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		avatarUpdates: make(map[string]string),
		nameUpdates:   make(map[string]string),
	}
}

func (f *fakeDB) Workspaces() persistence.WorkspaceRepository { return (*fakeWorkspaceRepo)(f) }
func (f *fakeDB) Voices() persistence.VoiceRepository         { return (*fakeVoiceRepo)(f) }
func (f *fakeDB) Posts() persistence.PostRepository           { return (*fakePostRepo)(f) }
func (f *fakeDB) Clients() persistence.ClientRepository       { return (*fakeClientRepo)(f) }
func (f *fakeDB) Digests() persistence.DigestRepository       { return (*fakeDigestRepo)(f) }
func (f *fakeDB) RunLogs() persistence.RunLogRepository       { return (*fakeRunLogRepo)(f) }
func (f *fakeDB) Signups() persistence.SignupRepository       { return (*fakeSignupRepo)(f) }
func (f *fakeDB) Ping(ctx context.Context) error              { return nil }
func (f *fakeDB) Close() error                                { return nil }

type fakeWorkspaceRepo fakeDB

func (r *fakeWorkspaceRepo) List(ctx context.Context) ([]core.Workspace, error) {
	return r.workspaces, nil
}

func (r *fakeWorkspaceRepo) Get(ctx context.Context, id string) (*core.Workspace, error) {
	for i := range r.workspaces {
		if r.workspaces[i].ID == id {
			return &r.workspaces[i], nil
		}
	}
	return nil, nil
}

func (r *fakeWorkspaceRepo) GetByOwner(ctx context.Context, ownerUserID string) (*core.Workspace, error) {
	for i := range r.workspaces {
		if r.workspaces[i].OwnerUserID == ownerUserID {
			return &r.workspaces[i], nil
		}
	}
	return nil, nil
}

func (r *fakeWorkspaceRepo) Create(ctx context.Context, workspace *core.Workspace) error {
	r.workspaces = append(r.workspaces, *workspace)
	return nil
}

type fakeVoiceRepo fakeDB

func (r *fakeVoiceRepo) ListSourcesByPlatform(ctx context.Context, workspaceID string, platform core.Platform) ([]core.VoiceSource, error) {
	if r.listSourcesErr != nil {
		return nil, r.listSourcesErr
	}
	var out []core.VoiceSource
	for _, source := range r.sources {
		if source.WorkspaceID == workspaceID && source.Platform == platform {
			out = append(out, source)
		}
	}
	return out, nil
}

func (r *fakeVoiceRepo) FindSourceByURL(ctx context.Context, platform core.Platform, sourceURL string) (*core.VoiceSource, error) {
	for i := range r.sources {
		if r.sources[i].Platform == platform && r.sources[i].SourceURL == sourceURL {
			return &r.sources[i], nil
		}
	}
	return nil, nil
}

func (r *fakeVoiceRepo) UpdateAvatar(ctx context.Context, voiceID, avatarURL string) error {
	r.avatarUpdates[voiceID] = avatarURL
	return nil
}

func (r *fakeVoiceRepo) UpdateName(ctx context.Context, voiceID, name string) error {
	r.nameUpdates[voiceID] = name
	return nil
}

type fakePostRepo fakeDB

func (r *fakePostRepo) CreateBatch(ctx context.Context, posts []core.Post) error {
	if r.createPostsErr != nil {
		return r.createPostsErr
	}
	r.posts = append(r.posts, posts...)
	return nil
}

func (r *fakePostRepo) ExistingURLs(ctx context.Context, workspaceID string, urls []string) (map[string]struct{}, error) {
	stored := make(map[string]struct{})
	for _, post := range r.posts {
		if post.WorkspaceID == workspaceID && post.PostURL != "" {
			stored[post.PostURL] = struct{}{}
		}
	}
	out := make(map[string]struct{})
	for _, u := range urls {
		if _, ok := stored[u]; ok {
			out[u] = struct{}{}
		}
	}
	return out, nil
}

func (r *fakePostRepo) ExistsByURL(ctx context.Context, workspaceID, postURL string) (bool, error) {
	for _, post := range r.posts {
		if post.WorkspaceID == workspaceID && post.PostURL == postURL {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePostRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Post, error) {
	var out []core.Post
	for _, post := range r.posts {
		if post.WorkspaceID == workspaceID {
			out = append(out, post)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeClientRepo fakeDB

func (r *fakeClientRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]core.Client, error) {
	if r.listClientsErr != nil {
		return nil, r.listClientsErr
	}
	var out []core.Client
	for _, client := range r.clients {
		if client.WorkspaceID == workspaceID {
			out = append(out, client)
		}
	}
	return out, nil
}

func (r *fakeClientRepo) ListVoiceLinks(ctx context.Context, workspaceID string) ([]core.ClientVoiceLink, error) {
	return r.links, nil
}

type fakeDigestRepo fakeDB

func (r *fakeDigestRepo) CreateBatch(ctx context.Context, digests []core.Digest) error {
	if r.createDigestErr != nil {
		return r.createDigestErr
	}
	r.digests = append(r.digests, digests...)
	return nil
}

func (r *fakeDigestRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Digest, error) {
	return r.digests, nil
}

type fakeRunLogRepo fakeDB

func (r *fakeRunLogRepo) Create(ctx context.Context, runLog *core.RunLog) error {
	r.runLogs = append(r.runLogs, *runLog)
	return nil
}

func (r *fakeRunLogRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.RunLog, error) {
	return r.runLogs, nil
}

type fakeSignupRepo fakeDB

func (r *fakeSignupRepo) Upsert(ctx context.Context, signup core.BetaSignup) error {
	for i := range r.signups {
		if r.signups[i].UserID == signup.UserID {
			r.signups[i] = signup
			return nil
		}
	}
	r.signups = append(r.signups, signup)
	return nil
}

func (r *fakeSignupRepo) ListSince(ctx context.Context, since time.Time) ([]core.BetaSignup, error) {
	return r.signups, nil
}

// fakeSocial serves canned profiles and feeds keyed by source URL.
type fakeSocial struct {
	profiles map[string]*ingest.Profile
	feeds    map[string][]ingest.FeedPost
	feedErr  map[string]error

	profileCalls []string
}

func (s *fakeSocial) FetchProfile(ctx context.Context, handleOrURL string) (*ingest.Profile, error) {
	s.profileCalls = append(s.profileCalls, handleOrURL)
	return s.profiles[handleOrURL], nil
}

func (s *fakeSocial) FetchRecentPosts(ctx context.Context, handleOrURL string) ([]ingest.FeedPost, error) {
	if err := s.feedErr[handleOrURL]; err != nil {
		return nil, err
	}
	return s.feeds[handleOrURL], nil
}

// fakeMailer records sends and can fail on demand.
type fakeMailer struct {
	ownerSends   []ownerSend
	clientSends  []clientSend
	summarySends int

	ownerErr   error
	clientErr  error
	summaryErr error
}

type ownerSend struct {
	to    string
	items []email.BriefItem
}

type clientSend struct {
	recipients []string
	clientName string
	summary    string
}

func (m *fakeMailer) SendOwnerDigest(ctx context.Context, to, workspaceName string, items []email.BriefItem) error {
	if m.ownerErr != nil {
		return m.ownerErr
	}
	m.ownerSends = append(m.ownerSends, ownerSend{to: to, items: items})
	return nil
}

func (m *fakeMailer) SendClientDigest(ctx context.Context, recipients []string, clientName, workspaceName, summary string) error {
	if m.clientErr != nil {
		return m.clientErr
	}
	m.clientSends = append(m.clientSends, clientSend{recipients: recipients, clientName: clientName, summary: summary})
	return nil
}

func (m *fakeMailer) SendSignupSummary(ctx context.Context, signups []core.BetaSignup, since time.Time) error {
	if m.summaryErr != nil {
		return m.summaryErr
	}
	m.summarySends++
	return nil
}

var testNow = time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)

func testRunner(db *fakeDB, social *fakeSocial, mailer *fakeMailer) *Runner {
	return New(db, social, mailer, WithClock(func() time.Time { return testNow }))
}

func seedWorkspace(db *fakeDB) core.Workspace {
	ws := core.Workspace{
		ID:          "ws-1",
		OwnerUserID: "user-1",
		OwnerEmail:  "owner@example.com",
		Name:        "My Workspace",
	}
	db.workspaces = append(db.workspaces, ws)
	return ws
}

func TestRunWorkspaceFullPipeline(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.sources = []core.VoiceSource{
		{
			Source:         core.Source{ID: "src-1", VoiceID: "voice-1", Platform: core.PlatformBluesky, SourceURL: "alice.bsky.social"},
			WorkspaceID:    ws.ID,
			VoiceName:      "Alice",
			VoiceAvatarURL: "https://cdn/alice.jpg",
		},
	}
	db.clients = []core.Client{
		{
			ID:               "client-1",
			WorkspaceID:      ws.ID,
			Name:             "Acme",
			Positioning:      "cloud security platform",
			DigestEnabled:    true,
			DigestRecipients: []string{"exec@acme.com"},
		},
	}

	recent := testNow.Add(-time.Hour)
	social := &fakeSocial{
		feeds: map[string][]ingest.FeedPost{
			"alice.bsky.social": {
				{AuthorName: "Alice", PostURL: "https://bsky.app/profile/alice/post/1", Content: "big security platform launch", PostedAt: &recent},
				{AuthorName: "Alice", PostURL: "https://bsky.app/profile/alice/post/2", Content: "lunch thoughts", PostedAt: &recent},
			},
		},
	}
	mailer := &fakeMailer{}

	result, err := testRunner(db, social, mailer).RunWorkspace(context.Background(), ws)
	if err != nil {
		t.Fatalf("RunWorkspace failed: %v", err)
	}

	if result.PostsInserted != 2 {
		t.Errorf("Expected 2 posts inserted, got %d", result.PostsInserted)
	}
	if result.BriefsCreated != 1 {
		t.Errorf("Expected 1 brief created, got %d", result.BriefsCreated)
	}
	// Owner digest plus one client digest.
	if result.EmailsSent != 2 {
		t.Errorf("Expected 2 emails sent, got %d", result.EmailsSent)
	}

	if len(db.digests) != 1 {
		t.Fatalf("Expected 1 digest row, got %d", len(db.digests))
	}
	digest := db.digests[0]
	if digest.Title != "Acme brief · 8/1/2026" {
		t.Errorf("Unexpected digest title %q", digest.Title)
	}
	if !strings.Contains(digest.Summary, "big security platform launch") {
		t.Errorf("Expected matched post in summary, got:\n%s", digest.Summary)
	}

	if len(mailer.ownerSends) != 1 || mailer.ownerSends[0].to != "owner@example.com" {
		t.Errorf("Expected one owner digest to the workspace owner, got %+v", mailer.ownerSends)
	}
	if len(mailer.clientSends) != 1 || mailer.clientSends[0].clientName != "Acme" {
		t.Errorf("Expected one client digest for Acme, got %+v", mailer.clientSends)
	}

	// Voice already has an avatar, so no profile backfill happened.
	if len(social.profileCalls) != 0 {
		t.Errorf("Expected no profile fetches, got %v", social.profileCalls)
	}
}

func TestRunWorkspaceDeduplicatesByURL(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.sources = []core.VoiceSource{
		{
			Source:         core.Source{ID: "src-1", VoiceID: "voice-1", Platform: core.PlatformBluesky, SourceURL: "alice.bsky.social"},
			WorkspaceID:    ws.ID,
			VoiceAvatarURL: "set",
		},
	}
	db.posts = []core.Post{
		{ID: "old", WorkspaceID: ws.ID, PostURL: "https://bsky.app/profile/alice/post/1", Content: "already stored"},
	}

	social := &fakeSocial{
		feeds: map[string][]ingest.FeedPost{
			"alice.bsky.social": {
				{PostURL: "https://bsky.app/profile/alice/post/1", Content: "already stored"},
				{PostURL: "https://bsky.app/profile/alice/post/2", Content: "brand new"},
				{Content: "no url, always inserted"},
			},
		},
	}

	result, err := testRunner(db, social, &fakeMailer{}).RunWorkspace(context.Background(), ws)
	if err != nil {
		t.Fatalf("RunWorkspace failed: %v", err)
	}

	if result.PostsInserted != 2 {
		t.Errorf("Expected 2 posts inserted (1 duplicate skipped), got %d", result.PostsInserted)
	}
	if len(db.posts) != 3 {
		t.Errorf("Expected 3 stored posts, got %d", len(db.posts))
	}
}

func TestRunWorkspaceBackfillsVoiceProfile(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.sources = []core.VoiceSource{
		{
			Source:      core.Source{ID: "src-1", VoiceID: "voice-1", Platform: core.PlatformBluesky, SourceURL: "alice.bsky.social"},
			WorkspaceID: ws.ID,
			VoiceName:   "Unknown",
		},
		{
			Source:      core.Source{ID: "src-2", VoiceID: "voice-2", Platform: core.PlatformBluesky, SourceURL: "bob.bsky.social"},
			WorkspaceID: ws.ID,
			VoiceName:   "Custom Name",
		},
	}

	social := &fakeSocial{
		profiles: map[string]*ingest.Profile{
			"alice.bsky.social": {Handle: "alice.bsky.social", DisplayName: "Alice", AvatarURL: "https://cdn/alice.jpg"},
			"bob.bsky.social":   {Handle: "bob.bsky.social", DisplayName: "Bob", AvatarURL: "https://cdn/bob.jpg"},
		},
		feeds: map[string][]ingest.FeedPost{},
	}

	if _, err := testRunner(db, social, &fakeMailer{}).RunWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("RunWorkspace failed: %v", err)
	}

	if db.avatarUpdates["voice-1"] != "https://cdn/alice.jpg" {
		t.Errorf("Expected avatar backfill for voice-1, got %v", db.avatarUpdates)
	}
	if db.nameUpdates["voice-1"] != "Alice" {
		t.Errorf("Expected name backfill for Unknown voice, got %v", db.nameUpdates)
	}
	// A voice with a custom name keeps it, but still gets the avatar.
	if db.avatarUpdates["voice-2"] != "https://cdn/bob.jpg" {
		t.Errorf("Expected avatar backfill for voice-2, got %v", db.avatarUpdates)
	}
	if _, renamed := db.nameUpdates["voice-2"]; renamed {
		t.Errorf("Did not expect name backfill for custom-named voice, got %v", db.nameUpdates)
	}
}

func TestRunWorkspaceSourceFailureIsIsolated(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.sources = []core.VoiceSource{
		{
			Source:         core.Source{ID: "src-1", VoiceID: "voice-1", Platform: core.PlatformBluesky, SourceURL: "down.bsky.social"},
			WorkspaceID:    ws.ID,
			VoiceAvatarURL: "set",
		},
		{
			Source:         core.Source{ID: "src-2", VoiceID: "voice-2", Platform: core.PlatformBluesky, SourceURL: "up.bsky.social"},
			WorkspaceID:    ws.ID,
			VoiceAvatarURL: "set",
		},
	}

	social := &fakeSocial{
		feedErr: map[string]error{"down.bsky.social": errors.New("rate limited")},
		feeds: map[string][]ingest.FeedPost{
			"up.bsky.social": {{PostURL: "https://bsky.app/profile/up/post/1", Content: "still flowing"}},
		},
	}

	result, err := testRunner(db, social, &fakeMailer{}).RunWorkspace(context.Background(), ws)
	if err != nil {
		t.Fatalf("Expected run to survive a source failure, got %v", err)
	}
	if result.PostsInserted != 1 {
		t.Errorf("Expected 1 post from the healthy source, got %d", result.PostsInserted)
	}
}

func TestRunWorkspaceDigestInsertFailureIsFatal(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.clients = []core.Client{
		{ID: "client-1", WorkspaceID: ws.ID, Name: "Acme", DigestEnabled: true, DigestRecipients: []string{"exec@acme.com"}},
	}
	db.createDigestErr = errors.New("disk full")

	mailer := &fakeMailer{}
	result, err := testRunner(db, &fakeSocial{}, mailer).RunWorkspace(context.Background(), ws)

	if err == nil {
		t.Fatal("Expected error when digest insert fails")
	}
	if result.BriefsCreated != 0 {
		t.Errorf("Expected zero briefs credited, got %d", result.BriefsCreated)
	}
	if len(mailer.ownerSends) != 0 || len(mailer.clientSends) != 0 {
		t.Error("Expected no emails after a failed digest insert")
	}
}

func TestRunWorkspaceNoClients(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)

	mailer := &fakeMailer{}
	result, err := testRunner(db, &fakeSocial{}, mailer).RunWorkspace(context.Background(), ws)
	if err != nil {
		t.Fatalf("RunWorkspace failed: %v", err)
	}

	if result.BriefsCreated != 0 || result.EmailsSent != 0 {
		t.Errorf("Expected empty result without clients, got %+v", result)
	}
	if len(db.digests) != 0 {
		t.Errorf("Expected no digest rows, got %d", len(db.digests))
	}
}

func TestRunWorkspaceOwnerDigestCoversFirstTwoBriefs(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	for _, name := range []string{"Acme", "Globex", "Initech"} {
		db.clients = append(db.clients, core.Client{ID: "client-" + name, WorkspaceID: ws.ID, Name: name})
	}

	mailer := &fakeMailer{}
	result, err := testRunner(db, &fakeSocial{}, mailer).RunWorkspace(context.Background(), ws)
	if err != nil {
		t.Fatalf("RunWorkspace failed: %v", err)
	}

	if result.BriefsCreated != 3 {
		t.Errorf("Expected 3 briefs, got %d", result.BriefsCreated)
	}
	if len(mailer.ownerSends) != 1 {
		t.Fatalf("Expected one owner digest, got %d", len(mailer.ownerSends))
	}
	items := mailer.ownerSends[0].items
	if len(items) != 2 {
		t.Fatalf("Expected owner digest to cover 2 briefs, got %d", len(items))
	}
	if items[0].Title != "Acme brief · 8/1/2026" || items[1].Title != "Globex brief · 8/1/2026" {
		t.Errorf("Unexpected owner digest titles: %q, %q", items[0].Title, items[1].Title)
	}
	for _, item := range items {
		if len([]rune(item.Summary)) > 800 {
			t.Errorf("Expected owner item summary capped at 800 chars, got %d", len([]rune(item.Summary)))
		}
	}
	// No client opted in, so only the owner email went out.
	if result.EmailsSent != 1 {
		t.Errorf("Expected 1 email sent, got %d", result.EmailsSent)
	}
}

func TestRunWorkspaceEmailFailuresDoNotAbort(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.clients = []core.Client{
		{ID: "client-1", WorkspaceID: ws.ID, Name: "Acme", DigestEnabled: true, DigestRecipients: []string{"exec@acme.com"}},
	}

	mailer := &fakeMailer{ownerErr: errors.New("smtp down"), clientErr: email.ErrNotConfigured}
	result, err := testRunner(db, &fakeSocial{}, mailer).RunWorkspace(context.Background(), ws)
	if err != nil {
		t.Fatalf("Expected email failures to be non-fatal, got %v", err)
	}

	if result.EmailsSent != 0 {
		t.Errorf("Expected zero emails counted, got %d", result.EmailsSent)
	}
	if result.BriefsCreated != 1 {
		t.Errorf("Expected the brief to persist regardless, got %d", result.BriefsCreated)
	}
}

func TestRunWorkspaceScopesPostsByVoiceLinks(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.clients = []core.Client{
		{ID: "client-1", WorkspaceID: ws.ID, Name: "Acme", Positioning: "security"},
	}
	db.links = []core.ClientVoiceLink{{ClientID: "client-1", VoiceID: "voice-1"}}
	db.posts = []core.Post{
		{ID: "p1", WorkspaceID: ws.ID, VoiceID: "voice-1", AuthorName: "linked", Content: "security update from linked voice"},
		{ID: "p2", WorkspaceID: ws.ID, VoiceID: "voice-2", AuthorName: "other", Content: "security update from other voice"},
	}

	if _, err := testRunner(db, &fakeSocial{}, &fakeMailer{}).RunWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("RunWorkspace failed: %v", err)
	}

	if len(db.digests) != 1 {
		t.Fatalf("Expected 1 digest, got %d", len(db.digests))
	}
	summary := db.digests[0].Summary
	if !strings.Contains(summary, "linked voice") {
		t.Errorf("Expected linked voice post in summary:\n%s", summary)
	}
	if strings.Contains(summary, "other voice") {
		t.Errorf("Expected unlinked voice post excluded from summary:\n%s", summary)
	}
}

func TestRunAllIsolatesWorkspaceFailures(t *testing.T) {
	db := newFakeDB()
	bad := core.Workspace{ID: "ws-bad", OwnerEmail: "bad@example.com", Name: "Bad"}
	good := core.Workspace{ID: "ws-good", OwnerEmail: "good@example.com", Name: "Good"}
	db.workspaces = []core.Workspace{bad, good}
	db.clients = []core.Client{
		{ID: "c-bad", WorkspaceID: "ws-bad", Name: "BadClient"},
		{ID: "c-good", WorkspaceID: "ws-good", Name: "GoodClient"},
	}
	db.signups = []core.BetaSignup{{UserID: "u1", Email: "one@example.com"}}

	db.createDigestErr = errors.New("boom")
	mailer := &fakeMailer{}
	r := testRunner(db, &fakeSocial{}, mailer)

	batch, err := r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	if batch.WorkspacesProcessed != 2 {
		t.Errorf("Expected both workspaces processed, got %d", batch.WorkspacesProcessed)
	}
	if len(batch.Failures) != 2 {
		t.Errorf("Expected 2 failures while digest insert is down, got %d", len(batch.Failures))
	}

	if len(db.runLogs) != 2 {
		t.Fatalf("Expected a run log per workspace, got %d", len(db.runLogs))
	}
	for _, entry := range db.runLogs {
		if entry.Status != core.RunStatusFailed {
			t.Errorf("Expected failed status, got %s", entry.Status)
		}
		if entry.ErrorMessage == "" {
			t.Error("Expected an error message on failed run log")
		}
		if entry.CompletedAt == nil {
			t.Error("Expected completed_at on run log")
		}
	}

	// Recovery: with persistence healthy the same batch succeeds.
	db.createDigestErr = nil
	batch, err = r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if len(batch.Failures) != 0 {
		t.Errorf("Expected no failures after recovery, got %+v", batch.Failures)
	}
	if batch.TotalBriefs != 2 {
		t.Errorf("Expected 2 briefs across workspaces, got %d", batch.TotalBriefs)
	}
	if batch.NewSignups != 1 || !batch.SignupSummarySent {
		t.Errorf("Expected signup summary covering 1 signup, got %+v", batch)
	}
	if mailer.summarySends != 2 {
		t.Errorf("Expected a signup summary per batch, got %d", mailer.summarySends)
	}

	logs := db.runLogs
	if len(logs) != 4 {
		t.Fatalf("Expected 4 run logs after two batches, got %d", len(logs))
	}
	for _, entry := range logs[2:] {
		if entry.Status != core.RunStatusSuccess {
			t.Errorf("Expected success status after recovery, got %s", entry.Status)
		}
	}
}

func TestRunAllSignupSummaryNotConfigured(t *testing.T) {
	db := newFakeDB()
	seedWorkspace(db)
	db.signups = []core.BetaSignup{{UserID: "u1"}}

	mailer := &fakeMailer{summaryErr: email.ErrNotConfigured}
	batch, err := testRunner(db, &fakeSocial{}, mailer).RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	if batch.SignupSummarySent {
		t.Error("Expected signup summary marked unsent when provider is not configured")
	}
	if batch.NewSignups != 1 {
		t.Errorf("Expected signup count preserved, got %d", batch.NewSignups)
	}
}

func TestRunOneUnknownWorkspace(t *testing.T) {
	db := newFakeDB()

	if _, err := testRunner(db, &fakeSocial{}, &fakeMailer{}).RunOne(context.Background(), "missing"); err == nil {
		t.Fatal("Expected error for unknown workspace id")
	}
}

func TestRunOneWritesRunLog(t *testing.T) {
	db := newFakeDB()
	ws := seedWorkspace(db)
	db.clients = []core.Client{{ID: "c1", WorkspaceID: ws.ID, Name: "Acme"}}

	result, err := testRunner(db, &fakeSocial{}, &fakeMailer{}).RunOne(context.Background(), ws.ID)
	if err != nil {
		t.Fatalf("RunOne failed: %v", err)
	}
	if result.BriefsCreated != 1 {
		t.Errorf("Expected 1 brief, got %d", result.BriefsCreated)
	}
	if len(db.runLogs) != 1 || db.runLogs[0].Status != core.RunStatusSuccess {
		t.Fatalf("Expected one successful run log, got %+v", db.runLogs)
	}
	if db.runLogs[0].BriefsCreated != 1 {
		t.Errorf("Expected run log counters to match result, got %+v", db.runLogs[0])
	}
}
