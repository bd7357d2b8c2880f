// Package api provides the HTTP gateway in front of the session store.
//
// Endpoints:
//
// Session Management:
//   - POST /api/v1/session - Create a new session
//   - GET /api/v1/session - List all sessions
//   - GET /api/v1/session/{id} - Get a session by ID
//   - DELETE /api/v1/session/{id} - End a session
//
// Realtime:
//   - GET /ws - Upgrade to the session WebSocket protocol
//
// Operational:
//   - GET /health - Health check with uptime and active session count
//   - GET /metrics - Prometheus metrics
//
// All endpoints accept and return JSON. Errors are returned as JSON with
// an appropriate HTTP status code:
//
//	{
//	  "error": "session not found"
//	}
package api
