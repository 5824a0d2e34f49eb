package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tokyorisk/internal/domain"
)

// TestAlertRaisedData tests AlertRaisedData struct
func TestAlertRaisedData(t *testing.T) {
	data := AlertRaisedData{
		Alert: domain.Alert{
			Level:          domain.RiskCritical,
			Type:           "COMBINED_RISK",
			Message:        "Critical combined risk level detected",
			RequiresAction: true,
		},
		Score:      0.84,
		AssessedAt: "2024-03-11T14:46:00Z",
	}

	jsonData, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), "COMBINED_RISK")
	assert.Contains(t, string(jsonData), `"combined_score":0.84`)

	var unmarshaled AlertRaisedData
	require.NoError(t, json.Unmarshal(jsonData, &unmarshaled))
	assert.Equal(t, data, unmarshaled)
}

func TestEventDataInterface(t *testing.T) {
	testCases := []struct {
		name     string
		data     EventData
		want     EventType
		contains []string
	}{
		{
			name:     "AlertRaisedData",
			data:     &AlertRaisedData{Alert: domain.Alert{Type: "EARTHQUAKE_RISK"}},
			want:     AlertRaised,
			contains: []string{"EARTHQUAKE_RISK"},
		},
		{
			name:     "AssessmentUpdatedData",
			data:     &AssessmentUpdatedData{Level: domain.RiskHigh, Alerts: 2},
			want:     AssessmentUpdated,
			contains: []string{"HIGH", `"alerts":2`},
		},
		{
			name:     "RefreshFailedData",
			data:     &RefreshFailedData{Error: "feed down", Stage: "market"},
			want:     RefreshFailed,
			contains: []string{"feed down", "market"},
		},
		{
			name:     "DecisionRecordedData",
			data:     &DecisionRecordedData{DecisionID: "d-1", Outcome: "approved"},
			want:     DecisionRecorded,
			contains: []string{"d-1", "approved"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.data.EventType())
			jsonData, err := json.Marshal(tc.data)
			require.NoError(t, err)
			for _, substr := range tc.contains {
				assert.Contains(t, string(jsonData), substr)
			}
		})
	}
}
