package queue

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		Kind:        KindExtraction,
		JobID:       "job-1",
		AnalysisID:  "analysis-123",
		FileID:      "file-1",
		FileType:    "tz",
		StoragePath: "uploads/tz.pdf",
		RequestID:   "request-456",
		EnqueuedAt:  "2026-01-30T22:00:00Z",
		Version:     MessageVersion,
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr error
		missing string
	}{
		{name: "comparison ok", msg: Message{Kind: KindComparison, JobID: "j", AnalysisID: "a"}},
		{name: "extraction ok", msg: Message{Kind: KindExtraction, JobID: "j", AnalysisID: "a", FileID: "f", FileType: "tz"}},
		{name: "unknown kind", msg: Message{Kind: "archive"}, wantErr: ErrUnknownKind},
		{
			name:    "extraction missing file",
			msg:     Message{Kind: KindExtraction, JobID: "j", AnalysisID: "a"},
			wantErr: ErrMissingField,
			missing: "fileId, fileType",
		},
		{name: "comparison missing job", msg: Message{Kind: KindComparison, AnalysisID: "a"}, wantErr: ErrMissingField, missing: "jobId"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.missing != "" && !strings.HasSuffix(err.Error(), tt.missing) {
				t.Fatalf("expected missing %q, got %v", tt.missing, err)
			}
		})
	}
}

type fakeSender struct {
	inputs []*sqs.SendMessageInput
}

func (f *fakeSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	_ = ctx
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSClientSend(t *testing.T) {
	fake := &fakeSender{}
	c := &SQSClient{client: fake, queueURL: "https://sqs.local/queue"}

	msg := Message{Kind: KindComparison, JobID: "j", AnalysisID: "a", Version: MessageVersion}
	if err := c.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected 1 send, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.QueueUrl != "https://sqs.local/queue" {
		t.Fatalf("unexpected queue url %s", *in.QueueUrl)
	}
	if got := *in.MessageAttributes["kind"].StringValue; got != KindComparison {
		t.Fatalf("expected kind attribute, got %s", got)
	}
	decoded, err := DecodeMessage([]byte(*in.MessageBody))
	if err != nil || decoded.JobID != "j" {
		t.Fatalf("unexpected body %s (%v)", *in.MessageBody, err)
	}

	if err := c.Send(context.Background(), Message{Kind: KindComparison}); err == nil {
		t.Fatalf("expected invalid message to be rejected")
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("invalid message must not be sent")
	}
}

func TestMemoryClientDrain(t *testing.T) {
	m := NewMemoryClient()
	msg := Message{Kind: KindComparison, JobID: "j", AnalysisID: "a"}
	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := m.Drain(); len(got) != 1 || got[0].JobID != "j" {
		t.Fatalf("unexpected drain: %+v", got)
	}
	if got := m.Drain(); len(got) != 0 {
		t.Fatalf("expected empty after drain, got %d", len(got))
	}
}
