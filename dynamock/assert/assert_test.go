package assert

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// recorder captures assertion failures instead of failing the test.
type recorder struct {
	testing.TB
	failures []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func sampleItem() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":     &types.AttributeValueMemberS{Value: "A1"},
		"total":  &types.AttributeValueMemberN{Value: "42"},
		"raw":    &types.AttributeValueMemberB{Value: []byte{0x01, 0x02}},
		"active": &types.AttributeValueMemberBOOL{Value: true},
		"tags":   &types.AttributeValueMemberSS{Value: []string{"b", "a"}},
		"scores": &types.AttributeValueMemberNS{Value: []string{"1", "2"}},
		"lines":  &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberNULL{Value: true}}},
		"meta": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"source": &types.AttributeValueMemberS{Value: "web"},
		}},
	}
}

func TestItemAssertion(t *testing.T) {
	t.Run("passing assertions record nothing", func(t *testing.T) {
		r := &recorder{}
		Item(r, sampleItem()).
			HasString("id", "A1").
			HasNumber("total", "42").
			HasBinary("raw", []byte{0x01, 0x02}).
			HasBool("active", true).
			HasStringSet("tags", "a", "b").
			HasNumberSet("scores", "2", "1").
			HasList("lines", 1).
			Lacks("missing").
			HasMap("meta").HasString("source", "web")

		if len(r.failures) != 0 {
			t.Errorf("unexpected failures: %v", r.failures)
		}
	})

	t.Run("wrong type is reported", func(t *testing.T) {
		r := &recorder{}
		Item(r, sampleItem()).HasString("total", "42")

		if len(r.failures) != 1 {
			t.Fatalf("expected 1 failure, got %v", r.failures)
		}
		if r.failures[0] != "expected total = S:42, got N:42" {
			t.Errorf("unexpected message %q", r.failures[0])
		}
	})

	t.Run("missing attribute is reported", func(t *testing.T) {
		r := &recorder{}
		Item(r, sampleItem()).HasNumber("count", "1")

		if len(r.failures) != 1 {
			t.Fatalf("expected 1 failure, got %v", r.failures)
		}
	})

	t.Run("attribute names", func(t *testing.T) {
		r := &recorder{}
		Item(r, sampleItem()).HasAttributes("id", "total", "raw", "active", "tags", "scores", "lines", "meta")
		Item(r, sampleItem()).HasAttributes("id")

		if len(r.failures) != 1 {
			t.Errorf("expected 1 failure, got %v", r.failures)
		}
	})
}

func TestItemsAssertion(t *testing.T) {
	items := []map[string]types.AttributeValue{
		{"id": &types.AttributeValueMemberS{Value: "A1"}},
		{"id": &types.AttributeValueMemberS{Value: "A2"}},
	}

	r := &recorder{}
	Items(r, items).HasCount(2).Contains("id", "S:A2")
	if len(r.failures) != 0 {
		t.Errorf("unexpected failures: %v", r.failures)
	}

	Items(r, items).Contains("id", "S:A3")
	Items(r, nil).IsEmpty()
	if len(r.failures) != 1 {
		t.Errorf("expected 1 failure, got %v", r.failures)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		av   types.AttributeValue
		want string
	}{
		{"string", &types.AttributeValueMemberS{Value: "x"}, "S:x"},
		{"number", &types.AttributeValueMemberN{Value: "-1.5"}, "N:-1.5"},
		{"null", &types.AttributeValueMemberNULL{Value: true}, "NULL"},
		{"binary set", &types.AttributeValueMemberBS{Value: [][]byte{{0xab}, {0x01}}}, "BS:ab,01"},
		{"list", &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberBOOL{Value: false},
			&types.AttributeValueMemberN{Value: "3"},
		}}, "L:[BOOL:false N:3]"},
		{"map", &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"b": &types.AttributeValueMemberS{Value: "2"},
			"a": &types.AttributeValueMemberS{Value: "1"},
		}}, "M:{a=S:1 b=S:2}"},
		{"nil", nil, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.av); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}
