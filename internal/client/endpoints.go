package client

const (
	endpointChatStream     = "/api/v1/chat/stream"
	endpointSessionHistory = "/api/v1/sessions/history/"
)
