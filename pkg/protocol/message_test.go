package protocol

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teslashibe/go-facemetrics/pkg/expression"
	"github.com/teslashibe/go-facemetrics/pkg/landmark"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "landmarks message",
			msgType: TypeLandmarks,
			data:    LandmarksData{FrameID: 1, Points: []landmark.Point{{X: 1, Y: 2}}},
		},
		{
			name:    "error message",
			msgType: TypeError,
			data:    ErrorData{Code: CodeInvalidInput, Message: "short frame"},
		},
		{
			name:    "nil data",
			msgType: TypeReset,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeMetrics,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestLandmarksRoundTrip(t *testing.T) {
	frame := landmark.Frame{{X: 0.1, Y: 0.2, Z: -0.01}, {X: 0.3, Y: 0.4}}
	conf := expression.Confidence{expression.LabelHappy: 0.8, expression.LabelNeutral: 0.2}

	msg, err := NewLandmarksMessage(7, frame, conf)
	if err != nil {
		t.Fatalf("NewLandmarksMessage() error = %v", err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	data, err := parsed.GetLandmarksData()
	if err != nil {
		t.Fatalf("GetLandmarksData() error = %v", err)
	}

	want := &LandmarksData{FrameID: 7, Points: frame, Expressions: conf}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("landmarks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(frame, data.Frame()); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestLandmarksWireFormat(t *testing.T) {
	raw := `{"type":"landmarks","ts":1,"data":{"frame_id":3,"points":[{"x":1,"y":2,"z":3}],"expressions":{"happy":0.5}}}`

	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	data, err := msg.GetLandmarksData()
	if err != nil {
		t.Fatal(err)
	}

	want := &LandmarksData{
		FrameID:     3,
		Points:      []landmark.Point{{X: 1, Y: 2, Z: 3}},
		Expressions: expression.Confidence{expression.LabelHappy: 0.5},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("landmarks mismatch (-want +got):\n%s", diff)
	}
}

func TestNewMetricsData(t *testing.T) {
	tests := []struct {
		name         string
		res          expression.Result
		want         MetricsData
		wantDescribe bool
	}{
		{
			name: "calibrating",
			res:  expression.Result{Frame: 3, State: expression.StateUncalibrated, Samples: 3},
			want: MetricsData{
				FrameID: 10, SessionID: "s1", Sequence: 3,
				State: "uncalibrated", Samples: 3,
			},
		},
		{
			name: "just calibrated",
			res:  expression.Result{Frame: 30, State: expression.StateCalibrated, Samples: 30, JustCalibrated: true},
			want: MetricsData{
				FrameID: 10, SessionID: "s1", Sequence: 30,
				State: "calibrated", Samples: 30, Calibrated: true,
			},
		},
		{
			name: "calibrated",
			res: expression.Result{
				Frame: 31, State: expression.StateCalibrated, Samples: 30,
				Metrics: expression.Metrics{MouthOpenness: 1, EyeOpenness: 1, SmileLevel: 0.9},
			},
			want: MetricsData{
				FrameID: 10, SessionID: "s1", Sequence: 31,
				State: "calibrated", Samples: 30, Calibrated: true,
				Metrics: expression.Metrics{MouthOpenness: 1, EyeOpenness: 1, SmileLevel: 0.9},
			},
			wantDescribe: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMetricsData("s1", 10, tt.res)
			if (got.Describe != nil) != tt.wantDescribe {
				t.Fatalf("Describe present = %v, want %v", got.Describe != nil, tt.wantDescribe)
			}
			got.Describe = nil
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("metrics mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMetricsWireFormat(t *testing.T) {
	msg, err := NewMetricsMessage("abc", 5, expression.Result{
		Frame: 40, State: expression.StateCalibrated, Samples: 30,
		Metrics: expression.Metrics{
			MouthOpenness: 1.2, EyeOpenness: 0.9, SmileLevel: 0.5,
			HeadPose: expression.HeadPose{Pitch: 1, Yaw: 2, Roll: 3},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatal(err)
	}
	metrics, ok := got["metrics"].(map[string]interface{})
	if !ok {
		t.Fatalf("metrics field missing: %v", got)
	}

	want := map[string]interface{}{
		"mouth_openness": 1.2,
		"eye_openness":   0.9,
		"smile_level":    0.5,
		"head_pose":      map[string]interface{}{"pitch": 1.0, "yaw": 2.0, "roll": 3.0},
	}
	if diff := cmp.Diff(want, metrics); diff != "" {
		t.Errorf("metrics JSON mismatch (-want +got):\n%s", diff)
	}
	if got["state"] != "calibrated" || got["session_id"] != "abc" {
		t.Errorf("unexpected envelope fields: %v", got)
	}
}

func TestPingPong(t *testing.T) {
	msg, err := NewPongMessage("p1", 1000, 1025)
	if err != nil {
		t.Fatal(err)
	}
	pong, err := msg.GetPongData()
	if err != nil {
		t.Fatal(err)
	}
	want := &PongData{ID: "p1", PingTS: 1000, PongTS: 1025, LatencyMs: 25}
	if diff := cmp.Diff(want, pong); diff != "" {
		t.Errorf("pong mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	tests := []string{
		"",
		"not json",
		`{"data":{}}`,
	}
	for _, raw := range tests {
		if _, err := ParseMessage([]byte(raw)); err == nil {
			t.Errorf("ParseMessage(%q) expected error", raw)
		}
	}
}

func TestFrameReader(t *testing.T) {
	input := strings.Join([]string{
		`# recorded session`,
		`{"points":[{"x":1,"y":1}]}`,
		``,
		`{"frame_id":42,"points":[{"x":2,"y":2}],"expressions":{"happy":0.9}}`,
	}, "\n")

	r := NewFrameReader(strings.NewReader(input))

	first, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if first.FrameID != 2 {
		t.Errorf("Expected line-numbered frame id 2, got %d", first.FrameID)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	want := &LandmarksData{
		FrameID:     42,
		Points:      []landmark.Point{{X: 2, Y: 2}},
		Expressions: expression.Confidence{expression.LabelHappy: 0.9},
	}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestFrameReader_BadLine(t *testing.T) {
	r := NewFrameReader(strings.NewReader("{\"points\":[]}\n{oops\n"))
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	_, err := r.Next()
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected a line 2 error, got %v", err)
	}
}
