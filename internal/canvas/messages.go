package canvas

import (
	"net/http"
	"time"

	"pixelboard/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the envelope for messages read off a viewer's connection.
// The only client-initiated message is the auth handshake; everything else
// travels over the HTTP API.
type ClientMessage struct {
	BaseMessage
	Auth   *Auth   `json:"auth,omitempty"`
	client *Client `json:"-"`
}

type Auth struct {
	UserId int `json:"user_id"`
}

type ServerMessage struct {
	BaseMessage
	Response    *Response    `json:"response,omitempty"`
	Init        *Init        `json:"init,omitempty"`
	PixelCount  *PixelCount  `json:"pixel_count,omitempty"`
	UpdatePixel *types.Pixel `json:"update_pixel,omitempty"`
	Logout      *Logout      `json:"logout,omitempty"`
}

// Init is the full snapshot sent to a viewer right after it subscribes, so
// late joiners never need to replay history.
type Init struct {
	TotalPixels int           `json:"total_pixels"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Pixels      []types.Pixel `json:"pixels"`
}

// PixelCount carries the authoritative total of painted coordinates.
type PixelCount struct {
	TotalPixels int `json:"total_pixels"`
}

// Logout instructs the viewer to tear down its connection for good, e.g.
// after a moderator ban.
type Logout struct {
	Reason string `json:"reason,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrUnauthorized(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusUnauthorized,
			Error:        "unauthorized",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func LogoutMessage(reason string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Logout: &Logout{Reason: reason},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
