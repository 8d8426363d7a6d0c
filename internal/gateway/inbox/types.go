package inbox

// Profile is the authenticated agent profile. PubsubToken is the credential
// the realtime channel subscription is built from.
type Profile struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	AccountID   int    `json:"account_id"`
	PubsubToken string `json:"pubsub_token"`
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ID             int    `json:"id"`
	InboxID        int    `json:"inbox_id"`
	Status         string `json:"status"`
	UnreadCount    int    `json:"unread_count"`
	LastActivityAt int64  `json:"last_activity_at"`
}

// ConversationMeta carries the list counters shown on the dashboard.
type ConversationMeta struct {
	MineCount       int `json:"mine_count"`
	UnassignedCount int `json:"unassigned_count"`
	AllCount        int `json:"all_count"`
}

// conversationPage is the wire envelope of the conversation list endpoint.
type conversationPage struct {
	Data struct {
		Meta    ConversationMeta      `json:"meta"`
		Payload []ConversationSummary `json:"payload"`
	} `json:"data"`
}

// ToggleResult reports the status a conversation ended up in after a toggle.
type ToggleResult struct {
	ConversationID int    `json:"conversation_id"`
	CurrentStatus  string `json:"current_status"`
}

// toggleEnvelope is the wire envelope of the toggle_status endpoint.
type toggleEnvelope struct {
	Payload ToggleResult `json:"payload"`
}
