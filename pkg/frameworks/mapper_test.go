package frameworks

import (
	"context"
	"reflect"
	"testing"

	"github.com/schoolsafe/docpipeline/pkg/types"
)

func TestMapFrameworksPolicyDocument(t *testing.T) {
	mapper := NewMapper()

	// A generic education policy matches FERPA through the institution
	// and document-type boosts even without naming it
	names, err := mapper.MapFrameworks(context.Background(),
		"All staff must protect student data at all times.",
		types.DocumentTypePolicy, "k12")
	if err != nil {
		t.Fatalf("MapFrameworks returned error: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("Expected at least one framework for a policy document")
	}
	if names[0] != FERPA {
		t.Errorf("Expected FERPA first, got %v", names)
	}
}

func TestMapFrameworksKeywordScoring(t *testing.T) {
	mapper := NewMapper()

	tests := []struct {
		name     string
		text     string
		docType  types.DocumentType
		instType string
		want     []string
	}{
		{
			name: "Explicit FERPA and COPPA mentions",
			text: "This FERPA notice covers education record access. " +
				"Per COPPA, children's online services require parental consent.",
			docType:  types.DocumentTypePolicy,
			instType: "k12",
			want:     []string{FERPA, COPPA},
		},
		{
			name:     "Health content triggers HIPAA",
			text:     "HIPAA governs protected health information in the nurse's office.",
			docType:  types.DocumentTypeContract,
			instType: "higher_ed",
			want:     []string{HIPAA, FERPA},
		},
		{
			name:     "No signals for a vendor contract",
			text:     "The vendor shall deliver desks and chairs by June.",
			docType:  types.DocumentTypeContract,
			instType: "vendor",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, err := mapper.MapFrameworks(context.Background(), tt.text, tt.docType, tt.instType)
			if err != nil {
				t.Fatalf("MapFrameworks returned error: %v", err)
			}
			if len(names) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, names)
			}
		})
	}
}

func TestMapFrameworksDeterministicOrder(t *testing.T) {
	mapper := NewMapper()
	text := "GDPR data subject rights and CCPA california consumer rights both apply. gdpr gdpr ccpa"

	first, err := mapper.MapFrameworks(context.Background(), text, types.DocumentTypePolicy, "vendor")
	if err != nil {
		t.Fatalf("MapFrameworks returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := mapper.MapFrameworks(context.Background(), text, types.DocumentTypePolicy, "vendor")
		if err != nil {
			t.Fatalf("MapFrameworks returned error: %v", err)
		}
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("Order changed between runs: %v vs %v", first, next)
		}
	}
}

func TestMapFrameworksCancelled(t *testing.T) {
	mapper := NewMapper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mapper.MapFrameworks(ctx, "text", types.DocumentTypePolicy, "k12"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
