package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaekong/memocloud/internal/testutil"
	"github.com/michaekong/memocloud/pkg/memoire"
)

type harness struct {
	t    *testing.T
	mock *testutil.MockAPI
	dir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("MEMOCLOUD_RETRY_MAX_ATTEMPTS", "0")
	t.Setenv("MEMOCLOUD_API_RATE_LIMIT", "0")

	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)

	pont := testutil.Record(1, "Pont métallique de Yaoundé", 2021)
	pont.Downloads = 15
	pont.PDF = "/media/pdf/pont.pdf"
	route := testutil.Record(2, "Étude des routes rurales", "2022")
	route.AverageRating = testutil.Rating(4.7)
	mock.Records = []memoire.Memoire{pont, route, testutil.Record(3, "Barrage hydraulique", 2021)}

	return &harness{t: t, mock: mock, dir: t.TempDir()}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--base-url", h.mock.URL(),
		"--session-dir", h.dir,
		"--log-level", "disabled",
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSearch(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "search", "etude")
	require.NoError(t, err)
	assert.Contains(t, out, "[2] Étude des routes rurales (2022)")
	assert.Contains(t, out, "[gold]")
	assert.Contains(t, out, "1 of 1 shown")
	assert.NotContains(t, out, "Pont")
}

func TestSearch_Filters(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "search", "--year", "2021", "--popular")
	require.NoError(t, err)
	assert.Contains(t, out, "Pont métallique")
	assert.NotContains(t, out, "Barrage")
	assert.Equal(t, "-created_at", h.mock.LastOrdering)
}

func TestSearch_SortFlagReachesServer(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "search", "--sort", "titre")
	require.NoError(t, err)
	assert.Equal(t, "titre", h.mock.LastOrdering)
}

func TestSearch_JSON(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "search", "--json")
	require.NoError(t, err)

	var body struct {
		Items []struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		} `json:"items"`
		Total      int  `json:"total"`
		Incomplete bool `json:"incomplete"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 3, body.Total)
	assert.Len(t, body.Items, 3)
	assert.False(t, body.Incomplete)
}

func TestSearch_IncompleteNotice(t *testing.T) {
	h := newHarness(t)
	h.mock.PageSize = 1
	h.mock.FailPage = 2

	out, err := h.run("", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "results may be incomplete")
	assert.Contains(t, out, "1 of 1 shown")
}

func TestSearch_InvalidRating(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "search", "--rating", "7")
	assert.Error(t, err)
}

func TestInteractions_RequireLogin(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"like", "1"},
		{"rate", "1", "4"},
		{"comment", "1", "Très", "bien"},
		{"comments", "1"},
		{"download", "1"},
	} {
		_, err := h.run("", args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "memocloud login", args)
	}
	assert.Empty(t, h.mock.GetPosts())
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)
	h.mock.Token = "secret"
	h.mock.Profile = memoire.Profile{ID: 5, Name: "Kong"}

	out, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")

	_, err = h.run("", "login", "wrong")
	assert.Error(t, err)

	out, err = h.run("secret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Kong.")

	out, err = h.run("", "like", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Like toggled.")

	out, err = h.run("", "download", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "https://mcb.reimca-app.com/media/pdf/pont.pdf")

	out, err = h.run("", "whoami", "--details")
	require.NoError(t, err)
	assert.Contains(t, out, "Kong")
	assert.Contains(t, out, "Downloads (1):")
	assert.Contains(t, out, "Pont métallique de Yaoundé")
	assert.Contains(t, out, "Likes (1):")

	_, err = h.run("", "rate", "2", "9")
	assert.Error(t, err)

	out, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	out, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestLoginWithEmail(t *testing.T) {
	h := newHarness(t)
	h.mock.Token = "secret"
	h.mock.Profile = memoire.Profile{ID: 5, Name: "Kong", Email: "kong@example.org"}

	out, err := h.run("first-pass\n", "register", "--email", "kong@example.org", "--username", "kong")
	require.NoError(t, err)
	assert.Contains(t, out, "memocloud login --email kong@example.org")

	_, err = h.run("wrong\n", "login", "--email", "kong@example.org")
	assert.Error(t, err)

	_, err = h.run("first-pass\n", "login", "--email", "kong@example.org", "sometoken")
	assert.Error(t, err, "email and token together")

	out, err = h.run("first-pass\n", "login", "--email", "kong@example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Kong.")

	out, err = h.run("first-pass\nsecond-pass\n", "passwd")
	require.NoError(t, err)
	assert.Contains(t, out, "Password changed.")
	assert.Equal(t, "second-pass", h.mock.Accounts["kong@example.org"])

	out, err = h.run("", "reset-password", "kong@example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "reset link")

	_, err = h.run("", "reset-password", "not-an-address")
	assert.Error(t, err)
}

func TestReferenceCommands(t *testing.T) {
	h := newHarness(t)
	h.mock.Stats = memoire.Stats{TotalMemoires: 3, TotalDownloads: 15}
	h.mock.Years = []int{2022, 2021}
	h.mock.Domains = []memoire.Domain{{Name: "Génie civil", Slug: "genie-civil"}}

	out, err := h.run("", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Theses:     3")

	out, err = h.run("", "years")
	require.NoError(t, err)
	assert.Equal(t, "2022\n2021\n", out)

	out, err = h.run("", "domains")
	require.NoError(t, err)
	assert.Contains(t, out, "genie-civil")

	out, err = h.run("", "analytics")
	require.NoError(t, err)
	assert.Contains(t, out, "Theses 3")
	assert.Contains(t, out, "Most downloaded")
}

func TestWatch(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("b\nba\nbarrage\n", "watch")
	require.NoError(t, err)
	assert.Contains(t, out, `-- "barrage": 1 result(s)`)
	assert.Contains(t, out, "Barrage hydraulique")
	assert.NotContains(t, out, `-- "ba":`)
}

func TestCacheClear_WithoutRedis(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "cache", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}
