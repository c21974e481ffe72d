package selector

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-datesync/internal/media"
)

var encoded = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func file(path string, enc, created, modified *time.Time) media.FileWithDates {
	return media.FileWithDates{Path: path, Encoded: enc, Created: created, Modified: modified}
}

func TestSelect(t *testing.T) {
	nineDaysLater := ptr(encoded.Add(9 * day))

	tests := []struct {
		name     string
		files    []media.FileWithDates
		criteria Criteria
		expected []string
	}{
		{
			name:     "modified beyond tolerance",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), ptr(encoded), nineDaysLater)},
			criteria: Criteria{CheckModified: true, MaxDifferenceDays: 5},
			expected: []string{"a.mp4"},
		},
		{
			name:     "modified within tolerance",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), ptr(encoded), nineDaysLater)},
			criteria: Criteria{CheckModified: true, MaxDifferenceDays: 9},
			expected: []string{},
		},
		{
			name:     "creation only ignores modified drift",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), ptr(encoded), nineDaysLater)},
			criteria: Criteria{CheckCreation: true, MaxDifferenceDays: 1},
			expected: []string{},
		},
		{
			name: "both criteria use OR",
			files: []media.FileWithDates{
				file("created.mp4", ptr(encoded), nineDaysLater, ptr(encoded)),
				file("modified.mp4", ptr(encoded), ptr(encoded), nineDaysLater),
				file("clean.mp4", ptr(encoded), ptr(encoded), ptr(encoded)),
			},
			criteria: Criteria{CheckCreation: true, CheckModified: true, MaxDifferenceDays: 1},
			expected: []string{"created.mp4", "modified.mp4"},
		},
		{
			name:     "neither criterion selects nothing",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), nineDaysLater, nineDaysLater)},
			criteria: Criteria{MaxDifferenceDays: 0},
			expected: []string{},
		},
		{
			name:     "no encoded date never qualifies",
			files:    []media.FileWithDates{file("a.mp4", nil, nineDaysLater, nineDaysLater)},
			criteria: Criteria{CheckCreation: true, CheckModified: true, MaxDifferenceDays: 0},
			expected: []string{},
		},
		{
			name:     "missing creation date cannot qualify creation",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), nil, ptr(encoded))},
			criteria: Criteria{CheckCreation: true, CheckModified: true, MaxDifferenceDays: 1},
			expected: []string{},
		},
		{
			name:     "missing creation date leaves modified in play",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), nil, nineDaysLater)},
			criteria: Criteria{CheckCreation: true, CheckModified: true, MaxDifferenceDays: 1},
			expected: []string{"a.mp4"},
		},
		{
			name:     "filesystem date before encoded date",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), ptr(encoded.Add(-3*day)), nil)},
			criteria: Criteria{CheckCreation: true, MaxDifferenceDays: 2},
			expected: []string{"a.mp4"},
		},
		{
			name:     "tolerance beyond duration range",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), ptr(encoded), nineDaysLater)},
			criteria: Criteria{CheckCreation: true, CheckModified: true, MaxDifferenceDays: 200000},
			expected: []string{},
		},
		{
			name:     "huge tolerance",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), ptr(encoded), nineDaysLater)},
			criteria: Criteria{CheckModified: true, MaxDifferenceDays: 1e9},
			expected: []string{},
		},
		{
			name:     "infinite tolerance",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), ptr(encoded), nineDaysLater)},
			criteria: Criteria{CheckModified: true, MaxDifferenceDays: math.Inf(1)},
			expected: []string{},
		},
		{
			name:     "NaN tolerance selects nothing",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), nineDaysLater, nineDaysLater)},
			criteria: Criteria{CheckCreation: true, CheckModified: true, MaxDifferenceDays: math.NaN()},
			expected: []string{},
		},
		{
			name:     "fractional days",
			files:    []media.FileWithDates{file("a.mp4", ptr(encoded), nil, ptr(encoded.Add(13*time.Hour)))},
			criteria: Criteria{CheckModified: true, MaxDifferenceDays: 0.5},
			expected: []string{"a.mp4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelectPaths(tt.files, tt.criteria))
		})
	}
}

func TestSelectThresholdIsStrict(t *testing.T) {
	c := Criteria{CheckModified: true, MaxDifferenceDays: 1}

	atThreshold := file("at.mp4", ptr(encoded), nil, ptr(encoded.Add(day)))
	justOver := file("over.mp4", ptr(encoded), nil, ptr(encoded.Add(day+time.Millisecond)))

	got := Select([]media.FileWithDates{atThreshold, justOver}, c)

	assert.NotContains(t, got, "at.mp4")
	assert.Contains(t, got, "over.mp4")
}

func TestSelectIsSubsetOfInput(t *testing.T) {
	files := []media.FileWithDates{
		file("a.mp4", ptr(encoded), ptr(encoded.Add(30*day)), nil),
		file("b.mp4", nil, ptr(encoded.Add(30*day)), nil),
		file("c.mp4", ptr(encoded), ptr(encoded), nil),
	}
	got := Select(files, Criteria{CheckCreation: true, MaxDifferenceDays: 1})

	input := map[string]bool{}
	for _, f := range files {
		input[f.Path] = true
	}
	for p := range got {
		assert.True(t, input[p])
	}
	assert.Len(t, got, 1)
}

func TestCriteriaValidate(t *testing.T) {
	require.NoError(t, Criteria{MaxDifferenceDays: 0}.Validate())
	require.NoError(t, Criteria{MaxDifferenceDays: 365}.Validate())
	require.NoError(t, Criteria{MaxDifferenceDays: 200000}.Validate())
	assert.Error(t, Criteria{MaxDifferenceDays: -1}.Validate())
	assert.Error(t, Criteria{MaxDifferenceDays: math.NaN()}.Validate())
	assert.Error(t, Criteria{MaxDifferenceDays: math.Inf(1)}.Validate())
	assert.Error(t, Criteria{MaxDifferenceDays: math.Inf(-1)}.Validate())
}

func TestMaxDifferenceSaturates(t *testing.T) {
	tests := []struct {
		days     float64
		expected time.Duration
	}{
		{days: 0, expected: 0},
		{days: 1.5, expected: 36 * time.Hour},
		{days: 100000, expected: 100000 * day},
		{days: 200000, expected: time.Duration(math.MaxInt64)},
		{days: 1e9, expected: time.Duration(math.MaxInt64)},
		{days: math.Inf(1), expected: time.Duration(math.MaxInt64)},
		{days: math.NaN(), expected: 0},
	}

	for _, tt := range tests {
		got := Criteria{MaxDifferenceDays: tt.days}.MaxDifference()
		assert.Equal(t, tt.expected, got, "days=%g", tt.days)
		assert.GreaterOrEqual(t, got, time.Duration(0))
	}
}

func TestDifference(t *testing.T) {
	d, ok := Difference(encoded, ptr(encoded.Add(-2*time.Hour)))
	assert.True(t, ok)
	assert.Equal(t, 2*time.Hour, d)

	_, ok = Difference(encoded, nil)
	assert.False(t, ok)
}
