package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanchat/src/services/api"
	"scanchat/src/services/api/apitest"
	"scanchat/src/types"
)

type memTokens struct {
	token string
}

func (m *memTokens) Token() string { return m.token }
func (m *memTokens) Clear() error  { m.token = ""; return nil }

func newTestController(t *testing.T, remaining float64) (*Controller, *apitest.Server, *memTokens) {
	t.Helper()
	server := apitest.New(t)
	server.AddUser("guest@example.com", "hunter2", remaining)
	tokens := &memTokens{token: server.TokenFor("guest@example.com")}
	client := api.NewClient(server.URL, tokens, 5*time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController(client, logger)
	ctrl.RefreshBalance(context.Background())
	return ctrl, server, tokens
}

func lastMessage(t *testing.T, ctrl *Controller) types.Message {
	t.Helper()
	messages := ctrl.Messages()
	require.NotEmpty(t, messages)
	return messages[len(messages)-1]
}

func TestHandleScan_Success(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2)

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/123456")

	messages := ctrl.Messages()
	require.Len(t, messages, 3) // submission, scan card, follow-up prompt
	assert.Equal(t, types.RoleUser, messages[0].Role)
	require.NotNil(t, messages[1].ScanData)
	assert.Equal(t, "https://www.airbnb.com/rooms/123456", messages[1].ScanData.ListingURL)
	assert.Equal(t, msgFollowUp, messages[2].Content)

	assert.NotEmpty(t, ctrl.CurrentChatID())
	require.Len(t, ctrl.Chats(), 1)
	assert.Equal(t, types.ChatTypeScan, ctrl.Chats()[0].Type)
	assert.Equal(t, 1.0, ctrl.Balance().Remaining, "balance refreshes after a billable scan")
}

func TestHandleScan_InsufficientBalanceNeverCallsNetwork(t *testing.T) {
	ctrl, server, _ := newTestController(t, 0.5)

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/123456")

	assert.Equal(t, 0, server.RequestCount("POST /chat/new-scan"))
	last := lastMessage(t, ctrl)
	assert.True(t, last.IsError)
	assert.Equal(t, msgNoBalance, last.Content)
}

func TestHandleScan_EmptyURLNeverCallsNetwork(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)

	ctrl.HandleScan(context.Background(), "   ")

	assert.Equal(t, 0, server.RequestCount("POST /chat/new-scan"))
	assert.Equal(t, msgEmptyURL, lastMessage(t, ctrl).Content)
}

func TestHandleScan_OneScanPerChat(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/123456")
	require.Equal(t, 1, server.RequestCount("POST /chat/new-scan"))

	// Same chat, second scan: rejected client-side, no second request.
	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/123456")
	assert.Equal(t, 1, server.RequestCount("POST /chat/new-scan"))
	last := lastMessage(t, ctrl)
	assert.True(t, last.IsError)
	assert.Equal(t, "This chat is dedicated to the property you just scanned.", last.Content)
	assert.Equal(t, 1.0, ctrl.Balance().Remaining, "no quota consumed by the rejected attempt")
}

func TestHandleScan_NewChatAllowsAnotherScan(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/1")
	ctrl.StartNewChat()
	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/2")

	assert.Equal(t, 2, server.RequestCount("POST /chat/new-scan"))
	assert.Len(t, ctrl.Chats(), 2)
	assert.Equal(t, 0.0, ctrl.Balance().Remaining)
}

func TestHandleScan_BackendDetailShownVerbatim(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)
	server.NewScanFailure = &apitest.Failure{
		Status: http.StatusNotFound,
		Detail: "We couldn't find a listing at that address",
	}

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/404404")

	last := lastMessage(t, ctrl)
	assert.True(t, last.IsError)
	assert.Equal(t, "We couldn't find a listing at that address", last.Content)
}

func TestHandleScan_GenericErrorForOtherStatuses(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)
	server.NewScanFailure = &apitest.Failure{Status: http.StatusInternalServerError, Detail: "boom"}

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/1")

	last := lastMessage(t, ctrl)
	assert.True(t, last.IsError)
	assert.Contains(t, last.Content, "status 500")
	assert.NotContains(t, last.Content, "boom", "5xx details are not shown verbatim")
}

func TestStartNewChat_ClearsSession(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2)
	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/1")
	require.NotEmpty(t, ctrl.Messages())

	ctrl.StartNewChat()

	assert.Empty(t, ctrl.Messages())
	assert.Equal(t, "", ctrl.CurrentChatID())
	assert.Len(t, ctrl.Chats(), 1, "sidebar list survives a new chat")
}

func TestStartNewChat_DiscardsInFlightCompletion(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)
	server.NewScanLatency = 150 * time.Millisecond

	done := make(chan struct{})
	go func() {
		ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/1")
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	ctrl.StartNewChat()
	<-done

	// The late completion must not write into the fresh session.
	assert.Empty(t, ctrl.Messages())
	assert.Equal(t, "", ctrl.CurrentChatID())
}

func TestScanScenario_QuotaAndDedicatedChat(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2)
	require.Equal(t, 2.0, ctrl.Balance().Remaining)

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/123456")
	require.NotNil(t, ctrl.Messages()[1].ScanData)
	assert.Equal(t, 1.0, ctrl.Balance().Remaining)

	ctrl.HandleScan(context.Background(), "https://www.airbnb.com/rooms/123456")
	assert.Equal(t, "This chat is dedicated to the property you just scanned.", lastMessage(t, ctrl).Content)
	assert.Equal(t, 1.0, ctrl.Balance().Remaining)
}

func TestHandleInput_RoutesScanAndQuestion(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)

	ctrl.HandleInput(context.Background(), "check https://www.airbnb.com/rooms/77 please")
	assert.Equal(t, 1, server.RequestCount("POST /chat/new-scan"))

	ctrl.HandleInput(context.Background(), "is the price fair?")
	assert.Equal(t, 1, server.RequestCount("POST /chat/{id}/ask"))
	assert.Equal(t, "Answer to: is the price fair?", lastMessage(t, ctrl).Content)
}

func TestHandleAsk_UsesPreScanEndpointWithoutChat(t *testing.T) {
	ctrl, server, _ := newTestController(t, 2)

	ctrl.HandleAsk(context.Background(), "what do you look for in a listing?")

	assert.Equal(t, 1, server.RequestCount("POST /chat/pre-scan/ask"))
	assert.Equal(t, 0, server.RequestCount("POST /chat/{id}/ask"))
}

func TestHandleInput_BareCompareOpensPickerWithTwoScans(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	server.SeedScanChat("Loft B", "https://www.airbnb.com/rooms/2", types.ScanResult{ID: "s2"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	ctrl.HandleInput(context.Background(), "Compare")

	assert.True(t, ctrl.ShowComparePicker())
	assert.Equal(t, 0, server.RequestCount("POST /compare"), "opening the picker is not a network action")
	assert.Len(t, ctrl.CompareOptions(), 2)
}

func TestHandleInput_BareCompareRejectedWithOneScan(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	ctrl.HandleInput(context.Background(), "compare")

	assert.False(t, ctrl.ShowComparePicker())
	assert.Equal(t, msgNeedTwoScans, lastMessage(t, ctrl).Content)
}

func TestHandleInput_CompareRequestWithTwoURLs(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)

	ctrl.HandleInput(context.Background(),
		"compare https://www.airbnb.com/rooms/1 and https://www.airbnb.com/rooms/2")

	assert.Equal(t, 1, server.RequestCount("POST /compare"))
	assert.False(t, ctrl.ShowComparePicker())
	messages := ctrl.Messages()
	var comparison *types.Message
	for i := range messages {
		if messages[i].IsComparison {
			comparison = &messages[i]
		}
	}
	require.NotNil(t, comparison)
	require.NotNil(t, comparison.ComparedScans)
	assert.Equal(t, "https://www.airbnb.com/rooms/1", comparison.ComparedScans.Scan1.ListingURL)
}

func TestCompareOptions_DeduplicatedAndURLRequired(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	server.SeedScanChat("Loft A again", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	server.SeedScanChat("No URL", "", types.ScanResult{ID: "s3"})
	server.SeedCompareChat("Comparison #abc", "answer", "s1", "s3")
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	options := ctrl.CompareOptions()
	require.Len(t, options, 1, "duplicates, URL-less scans and compare chats are excluded")
	assert.Equal(t, "s1", options[0].ScanID)
	assert.Equal(t, "Loft A again", options[0].Label(), "the newest summary wins the dedupe")
}

func TestHandleCompare_ValidatesSelection(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	server.SeedScanChat("Loft B", "https://www.airbnb.com/rooms/2", types.ScanResult{ID: "s2"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	err := ctrl.HandleCompare(context.Background(), types.ComparisonSelection{Scan1ID: "s1", Scan2ID: "s1"})
	require.Error(t, err)
	assert.Equal(t, "Cannot compare the same listing", err.Error())

	err = ctrl.HandleCompare(context.Background(), types.ComparisonSelection{Scan1ID: "s1"})
	require.Error(t, err)
	assert.Equal(t, 0, server.RequestCount("POST /compare"))
}

func TestHandleCompare_ReconcilesChatID(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	server.SeedScanChat("Loft B", "https://www.airbnb.com/rooms/2", types.ScanResult{ID: "s2"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	err := ctrl.HandleCompare(context.Background(), types.ComparisonSelection{
		Scan1ID: "s1", Scan2ID: "s2", Question: "which is safer?",
	})
	require.NoError(t, err)

	chatID := ctrl.CurrentChatID()
	require.NotEmpty(t, chatID)
	assert.False(t, IsLocalChat(chatID), "persisted compare uses the backend id")
	assert.Equal(t, 1, server.RequestCount("POST /save-compare"))

	// The persisted chat is really there.
	ctrl.LoadChat(context.Background(), chatID)
	last := lastMessage(t, ctrl)
	assert.True(t, last.IsComparison)
}

func TestHandleCompare_PersistenceFailureFallsBackToLocalID(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	server.SeedScanChat("Loft B", "https://www.airbnb.com/rooms/2", types.ScanResult{ID: "s2"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))
	server.SaveCompareFailure = &apitest.Failure{Status: http.StatusInternalServerError}

	err := ctrl.HandleCompare(context.Background(), types.ComparisonSelection{Scan1ID: "s1", Scan2ID: "s2"})
	require.NoError(t, err, "persistence failure does not fail the comparison")

	// The answer was shown despite the failed save.
	var sawComparison bool
	for _, msg := range ctrl.Messages() {
		if msg.IsComparison {
			sawComparison = true
		}
	}
	assert.True(t, sawComparison)

	chatID := ctrl.CurrentChatID()
	assert.True(t, IsLocalChat(chatID))

	// The local-only chat stays navigable without any network.
	before := server.RequestCount("GET /chat/{id}")
	ctrl.LoadChat(context.Background(), chatID)
	assert.Equal(t, before, server.RequestCount("GET /chat/{id}"))
	assert.True(t, lastMessage(t, ctrl).IsComparison)
}

func TestLoadChat_CompareChatNeverOpensPicker(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1", Title: "Loft A"})
	server.SeedScanChat("Loft B", "https://www.airbnb.com/rooms/2", types.ScanResult{ID: "s2", Title: "Loft B"})
	compareID := server.SeedCompareChat("Comparison #1", "Loft A is the safer pick", "s1", "s2")
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	ctrl.LoadChat(context.Background(), compareID)

	assert.False(t, ctrl.ShowComparePicker())
	messages := ctrl.Messages()
	require.NotEmpty(t, messages)
	last := messages[len(messages)-1]
	assert.True(t, last.IsComparison)
	require.NotNil(t, last.ComparedScans)
	assert.Equal(t, "Loft A", last.ComparedScans.Scan1.Title)
}

func TestLoadChat_ScanChatHydratesAndCaches(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	chatID := server.SeedScanChat("Canal House", "https://www.booking.com/hotel/nl/canal-house",
		types.ScanResult{ID: "s1", Title: "Canal House", Label: "Looks legitimate"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	ctrl.LoadChat(context.Background(), chatID)
	require.Equal(t, 1, server.RequestCount("GET /scan/{id}"))
	messages := ctrl.Messages()
	require.Len(t, messages, 2)
	require.NotNil(t, messages[1].ScanData)
	assert.Equal(t, "Canal House", messages[1].ScanData.Title)

	// Revisiting uses the cache; at most one ScanResult fetch per chat id.
	ctrl.StartNewChat()
	ctrl.LoadChat(context.Background(), chatID)
	assert.Equal(t, 1, server.RequestCount("GET /scan/{id}"))
	require.NotNil(t, ctrl.Messages()[1].ScanData)
}

func TestLoadChat_PartialHydrationAppendsRecoverableError(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	chatID := server.SeedScanChat("Canal House", "https://www.booking.com/hotel/nl/canal-house",
		types.ScanResult{ID: "s1", Title: "Canal House"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))
	server.RemoveScan("s1")

	ctrl.LoadChat(context.Background(), chatID)

	messages := ctrl.Messages()
	require.NotEmpty(t, messages, "partially-loaded chat is still shown")
	assert.Equal(t, types.RoleUser, messages[0].Role)
	last := messages[len(messages)-1]
	assert.True(t, last.IsError)
	assert.Equal(t, msgScanDetailFailed, last.Content)
}

func TestLoadChat_MissingChatShowsErrorMessage(t *testing.T) {
	ctrl, _, _ := newTestController(t, 5)

	ctrl.LoadChat(context.Background(), "does-not-exist")

	last := lastMessage(t, ctrl)
	assert.True(t, last.IsError)
	assert.Equal(t, msgChatLoadFailed, last.Content)
}

func TestLoadChatsOnly_ReplaceThenAppendWithoutDuplicates(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.ChatPageSize = 2
	for i := 0; i < 3; i++ {
		server.SeedScanChat("Scan", "https://www.airbnb.com/rooms/1", types.ScanResult{})
	}

	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))
	assert.Len(t, ctrl.Chats(), 2)
	assert.True(t, ctrl.HasMoreChats())

	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 2, true))
	chats := ctrl.Chats()
	assert.Len(t, chats, 3)
	assert.False(t, ctrl.HasMoreChats())

	seen := map[string]bool{}
	for _, chat := range chats {
		assert.False(t, seen[chat.ID], "duplicate id %s", chat.ID)
		seen[chat.ID] = true
	}

	// Re-appending the same page changes nothing.
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 2, true))
	assert.Len(t, ctrl.Chats(), 3)

	// An initial load replaces instead of appending.
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))
	assert.Len(t, ctrl.Chats(), 2)
}

func TestLoadChatsOnly_LegacyArrayMeansNoMorePages(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.LegacyChatList = true
	server.SeedScanChat("Scan", "https://www.airbnb.com/rooms/1", types.ScanResult{})

	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))
	assert.Len(t, ctrl.Chats(), 1)
	assert.False(t, ctrl.HasMoreChats())
}

func TestResolveCompareTitles_GatedOnSectionExpansion(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1", Title: "Loft A"})
	server.SeedScanChat("Loft B", "https://www.airbnb.com/rooms/2", types.ScanResult{ID: "s2", Title: "Loft B"})
	compareID := server.SeedCompareChat("Comparison #deadbeef", "answer", "s1", "s2")
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))

	// Section closed: no fetches, title untouched.
	before := server.RequestCount("GET /chat/{id}")
	ctrl.ResolveCompareTitles(context.Background())
	assert.Equal(t, before, server.RequestCount("GET /chat/{id}"))

	ctrl.SetCompareSectionOpen(true)
	ctrl.ResolveCompareTitles(context.Background())

	var title string
	for _, chat := range ctrl.Chats() {
		if chat.ID == compareID {
			title = chat.Title
		}
	}
	assert.Equal(t, "Loft A vs Loft B", title)

	// Resolved once; a second pass fetches nothing.
	after := server.RequestCount("GET /chat/{id}")
	ctrl.ResolveCompareTitles(context.Background())
	assert.Equal(t, after, server.RequestCount("GET /chat/{id}"))
}

func TestRefreshBalance_AuthFailureForcesLogout(t *testing.T) {
	ctrl, server, tokens := newTestController(t, 5)
	require.False(t, ctrl.LoggedOut())

	server.MeFailure = &apitest.Failure{Status: http.StatusUnauthorized, Detail: "Token expired"}
	ctrl.RefreshBalance(context.Background())

	assert.True(t, ctrl.LoggedOut())
	assert.Equal(t, "", tokens.token, "credentials wiped on auth failure")
}

func TestRefreshBalance_OtherFailuresKeepStaleBalance(t *testing.T) {
	ctrl, server, tokens := newTestController(t, 5)
	require.Equal(t, 5.0, ctrl.Balance().Remaining)

	server.MeFailure = &apitest.Failure{Status: http.StatusInternalServerError}
	ctrl.RefreshBalance(context.Background())

	assert.False(t, ctrl.LoggedOut())
	assert.NotEmpty(t, tokens.token)
	assert.Equal(t, 5.0, ctrl.Balance().Remaining, "stale balance kept on non-auth failure")
}

func TestBootstrap(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})

	require.NoError(t, ctrl.Bootstrap(context.Background()))
	assert.Len(t, ctrl.Chats(), 1)
	assert.Equal(t, 5.0, ctrl.Balance().Remaining)
}

func TestLocalCompareSurvivesSidebarReload(t *testing.T) {
	ctrl, server, _ := newTestController(t, 5)
	server.SeedScanChat("Loft A", "https://www.airbnb.com/rooms/1", types.ScanResult{ID: "s1"})
	server.SeedScanChat("Loft B", "https://www.airbnb.com/rooms/2", types.ScanResult{ID: "s2"})
	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))
	server.SaveCompareFailure = &apitest.Failure{Status: http.StatusInternalServerError}

	require.NoError(t, ctrl.HandleCompare(context.Background(), types.ComparisonSelection{Scan1ID: "s1", Scan2ID: "s2"}))
	localID := ctrl.CurrentChatID()
	require.True(t, IsLocalChat(localID))

	require.NoError(t, ctrl.LoadChatsOnly(context.Background(), 1, false))
	var found bool
	for _, chat := range ctrl.Chats() {
		if chat.ID == localID {
			found = true
			assert.True(t, strings.Contains(chat.Title, " vs "))
		}
	}
	assert.True(t, found, "local-only compare stays listed after a sidebar reload")
}

func TestBalanceLoaded_TracksFirstSuccessfulRefresh(t *testing.T) {
	server := apitest.New(t)
	server.AddUser("guest@example.com", "hunter2", 5)
	tokens := &memTokens{token: server.TokenFor("guest@example.com")}
	client := api.NewClient(server.URL, tokens, 5*time.Second)
	ctrl := NewController(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.False(t, ctrl.BalanceLoaded(), "no quota known before the first refresh")

	server.MeFailure = &apitest.Failure{Status: http.StatusInternalServerError}
	ctrl.RefreshBalance(context.Background())
	assert.False(t, ctrl.BalanceLoaded(), "a failed refresh leaves the quota unknown")

	server.MeFailure = nil
	ctrl.RefreshBalance(context.Background())
	assert.True(t, ctrl.BalanceLoaded())
	assert.Equal(t, 5.0, ctrl.Balance().Remaining)
}
