package speech

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/sirius-report/backend/internal/model/chat"
	speechmodel "github.com/zhouzirui/sirius-report/backend/internal/model/speech"
)

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func dial(t *testing.T, env *testEnv, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/speech/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "data": data}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil 读取消息直到出现 msgType，返回途中收到的所有消息。
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) []received {
	t.Helper()
	var seen []received
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg received
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v (seen %d messages)", msgType, err, len(seen))
		}
		seen = append(seen, msg)
		if msg.Type == msgType {
			return seen
		}
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t, true)

	resp, err := http.Get(env.server.URL + "/api/speech/ws/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestWebSocketTextInputProducesReport(t *testing.T) {
	env := newTestEnv(t, false)
	session := env.registry.Create()
	conn := dial(t, env, session.ID())

	readUntil(t, conn, speechmodel.OutboundState)
	send(t, conn, speechmodel.InboundText, speechmodel.TextInput{Text: "Fahrrad am Bahnhof gestohlen, 8 Uhr."})

	msgs := readUntil(t, conn, speechmodel.OutboundReport)
	last := msgs[len(msgs)-1]

	var payload speechmodel.ReportPayload
	if err := json.Unmarshal(last.Data, &payload); err != nil {
		t.Fatalf("decode report payload: %v", err)
	}
	if payload.Report == nil || payload.Report.Title != "Fahrraddiebstahl am Bahnhof" {
		t.Fatalf("unexpected report payload: %s", last.Data)
	}
	if last.SessionID != session.ID() {
		t.Fatalf("unexpected session id: %s", last.SessionID)
	}
	if session.State() != chat.StateCompleted {
		t.Fatalf("expected completed, got %s", session.State())
	}
}

func TestWebSocketDictation(t *testing.T) {
	env := newTestEnv(t, true)
	env.rec.respond("Fahrrad am Bahnhof gestohlen.", nil)
	session := env.registry.Create()
	conn := dial(t, env, session.ID())
	readUntil(t, conn, speechmodel.OutboundState)

	send(t, conn, speechmodel.InboundStart, speechmodel.StartOptions{Format: "pcm"})
	readUntil(t, conn, speechmodel.OutboundState)
	if session.State() != chat.StateRecording {
		t.Fatalf("expected recording, got %s", session.State())
	}

	send(t, conn, speechmodel.InboundAudio, speechmodel.AudioChunk{AudioData: []byte{1, 2, 3, 4}})
	send(t, conn, speechmodel.InboundStop, nil)

	msgs := readUntil(t, conn, speechmodel.OutboundTranscript)
	var update speechmodel.TranscriptUpdate
	if err := json.Unmarshal(msgs[len(msgs)-1].Data, &update); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if !update.Final || update.Text != "Fahrrad am Bahnhof gestohlen." {
		t.Fatalf("unexpected transcript: %#v", update)
	}

	readUntil(t, conn, speechmodel.OutboundReport)
}

func TestWebSocketEmptyDictationCancelsRecording(t *testing.T) {
	env := newTestEnv(t, true)
	session := env.registry.Create()
	conn := dial(t, env, session.ID())
	readUntil(t, conn, speechmodel.OutboundState)

	send(t, conn, speechmodel.InboundStart, nil)
	readUntil(t, conn, speechmodel.OutboundState)
	send(t, conn, speechmodel.InboundStop, nil)

	readUntil(t, conn, speechmodel.OutboundTranscript)
	msgs := readUntil(t, conn, speechmodel.OutboundState)

	var snap chat.Snapshot
	if err := json.Unmarshal(msgs[len(msgs)-1].Data, &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if snap.State != chat.StateIdle {
		t.Fatalf("expected idle after empty dictation, got %s", snap.State)
	}
}

func TestWebSocketRejectsAudioWithoutStart(t *testing.T) {
	env := newTestEnv(t, false)
	session := env.registry.Create()
	conn := dial(t, env, session.ID())
	readUntil(t, conn, speechmodel.OutboundState)

	send(t, conn, speechmodel.InboundStart, nil)
	msgs := readUntil(t, conn, speechmodel.OutboundError)
	if !strings.Contains(string(msgs[len(msgs)-1].Data), "unavailable") {
		t.Fatalf("unexpected error: %s", msgs[len(msgs)-1].Data)
	}

	send(t, conn, speechmodel.InboundAudio, speechmodel.AudioChunk{AudioData: []byte{1}})
	msgs = readUntil(t, conn, speechmodel.OutboundError)
	if !strings.Contains(string(msgs[len(msgs)-1].Data), "recording not started") {
		t.Fatalf("unexpected error: %s", msgs[len(msgs)-1].Data)
	}

	send(t, conn, "bogus", nil)
	readUntil(t, conn, speechmodel.OutboundError)
}
