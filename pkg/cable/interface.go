package cable

// ClientInterface defines the interface for realtime channel operations
type ClientInterface interface {
	Connect()
	Disconnect()
	Status() ConnectionStatus
	SetOnEvent(handler EventHandler)
}

var _ ClientInterface = (*Client)(nil)
