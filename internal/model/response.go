package model

// Response is the wire envelope for every API reply. Code mirrors the HTTP
// status family (200 success, 400 invalid parameter, 500 internal error);
// authorization failures deliberately share the 400 shape with validation
// failures so callers cannot probe which admin keys exist.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// StatusData is the payload for user status queries. Reason is omitted for
// neutral users.
type StatusData struct {
	UID    int64  `json:"uid"`
	Status int16  `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// LastReasonData is the payload for audit-trail lookups.
type LastReasonData struct {
	Status    int16  `json:"status"`
	OpRole    string `json:"opRole"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// StatisticsData is the payload for the aggregate counts endpoint.
type StatisticsData struct {
	DenyCount  int64 `json:"denyCount"`
	AllowCount int64 `json:"allowCount"`
}
