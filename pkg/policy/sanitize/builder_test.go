package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Equal(t, []string{
		CategoryCreditCard,
		CategorySSN,
		CategoryEmail,
		CategoryPhone,
		CategoryFullName,
		CategoryProfanity,
	}, Default().Categories())
	assert.Equal(t, DefaultMarker, Default().Marker())
	assert.Equal(t, DefaultProfanityMask, Default().ProfanityMask())
}

func TestBuilder_CustomRulePriority(t *testing.T) {
	ps, err := NewBuilder(Default()).
		AddRule(Rule{Name: "student_id", Pattern: `\bSID-\d{6}\b`, Priority: 250}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{
		CategoryCreditCard,
		CategorySSN,
		"student_id",
		CategoryEmail,
		CategoryPhone,
		CategoryFullName,
		CategoryProfanity,
	}, ps.Categories())
	assert.Equal(t, "Record [REDACTED] updated", Text(ps, "Record SID-123456 updated"))

	// the base set is untouched
	assert.Len(t, Default().Categories(), 6)
	assert.Equal(t, "Record SID-123456 updated", Text(Default(), "Record SID-123456 updated"))
}

func TestBuilder_EqualPrioritiesKeepInsertionOrder(t *testing.T) {
	ps, err := NewBuilder(nil).
		AddRules(
			Rule{Name: "first", Pattern: `\bALPHA\b`, Replacement: "[A]", Priority: 50},
			Rule{Name: "second", Pattern: `\bBETA\b`, Replacement: "[B]", Priority: 50},
		).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, ps.Categories()[:2])
	assert.Equal(t, "[A] [B]", Text(ps, "ALPHA BETA"))
}

func TestBuilder_CustomReplacementIsStable(t *testing.T) {
	ps, err := NewBuilder(nil).
		AddRule(Rule{Name: "tag", Pattern: `\bTAG\b`, Replacement: "[TAG]", Priority: 700}).
		Build()
	require.NoError(t, err)

	once := Text(ps, "id TAG-45-6789")
	assert.Equal(t, "id [TAG]-45-6789", once)
	assert.Equal(t, once, Text(ps, once))
}

func TestBuilder_Options(t *testing.T) {
	t.Run("marker and mask", func(t *testing.T) {
		ps, err := NewBuilder(nil).WithMarker("[PII]").WithProfanityMask("#").Build()
		require.NoError(t, err)
		assert.Equal(t, "Write [PII], # it", Text(ps, "Write john@example.com, damn it"))
	})

	t.Run("stopwords", func(t *testing.T) {
		assert.Equal(t, "[REDACTED] move heat", Text(nil, "Ocean Currents move heat"))

		ps, err := NewBuilder(nil).AddStopwords("Ocean").Build()
		require.NoError(t, err)
		assert.Equal(t, "Ocean Currents move heat", Text(ps, "Ocean Currents move heat"))
	})

	t.Run("profanity", func(t *testing.T) {
		ps, err := NewBuilder(nil).AddProfanity("heck").Build()
		require.NoError(t, err)
		assert.Equal(t, "What the ****", Text(ps, "What the HECK"))
	})

	t.Run("disable", func(t *testing.T) {
		ps, err := NewBuilder(nil).Disable(CategoryFullName, CategoryProfanity).Build()
		require.NoError(t, err)
		assert.Equal(t, []string{CategoryCreditCard, CategorySSN, CategoryEmail, CategoryPhone}, ps.Categories())
		assert.Equal(t, "John Smith says damn", Text(ps, "John Smith says damn"))
	})
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		wantErr string
	}{
		{
			name:    "empty name",
			builder: NewBuilder(nil).AddRule(Rule{Pattern: `x`}),
			wantErr: "rule name is required",
		},
		{
			name:    "empty pattern",
			builder: NewBuilder(nil).AddRule(Rule{Name: "blank"}),
			wantErr: "pattern is required",
		},
		{
			name:    "bad regex",
			builder: NewBuilder(nil).AddRule(Rule{Name: "broken", Pattern: `(`}),
			wantErr: "invalid pattern for rule broken",
		},
		{
			name:    "matches empty string",
			builder: NewBuilder(nil).AddRule(Rule{Name: "greedy", Pattern: `a*`}),
			wantErr: "matches the empty string",
		},
		{
			name:    "duplicate builtin",
			builder: NewBuilder(nil).AddRule(Rule{Name: "Email", Pattern: `x\d`}),
			wantErr: "duplicate rule Email",
		},
		{
			name:    "reserved name",
			builder: NewBuilder(nil).AddRule(Rule{Name: CategoryFullName, Pattern: `x\d`}),
			wantErr: "duplicate rule full_name",
		},
		{
			name:    "blank marker",
			builder: NewBuilder(nil).WithMarker("  "),
			wantErr: "marker must not be blank",
		},
		{
			name:    "blank mask",
			builder: NewBuilder(nil).WithProfanityMask(""),
			wantErr: "profanity mask must not be blank",
		},
		{
			name:    "replacement redacted by another rule",
			builder: NewBuilder(nil).AddRule(Rule{Name: "tag", Pattern: `\bTAG\b`, Replacement: "john@example.com"}),
			wantErr: "is itself redacted",
		},
		{
			name:    "replacement joins neighbouring digits",
			builder: NewBuilder(nil).AddRule(Rule{Name: "tag", Pattern: `\bTAG\b`, Replacement: "123", Priority: 700}),
			wantErr: "must start and end with a non-word character",
		},
		{
			name:    "marker ends with a letter",
			builder: NewBuilder(nil).WithMarker("[gone"),
			wantErr: "must start and end with a non-word character",
		},
		{
			name:    "marker holds profanity",
			builder: NewBuilder(nil).WithMarker("[damn]"),
			wantErr: "is itself redacted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := tt.builder.Build()
			require.Error(t, err)
			assert.Nil(t, ps)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
