package risk

import (
	"fmt"
	"strings"
	"time"
)

var tokyoLocation = loadTokyo()

func loadTokyo() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

const reportRule = "------------------------------------------------------------------------"

// Report renders a plain-text summary of an assessment for display
func Report(a CombinedAssessment) string {
	var b strings.Builder

	b.WriteString("TOKYO MARKET RISK ASSESSMENT REPORT\n")
	fmt.Fprintf(&b, "Generated: %s JST\n\n", a.Timestamp.In(tokyoLocation).Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "OVERALL RISK LEVEL: %s\n", a.Combined.Level)
	fmt.Fprintf(&b, "Combined Risk Score: %.3f\n", a.Combined.Score)
	fmt.Fprintf(&b, "Confidence Level: %.1f%%\n\n", a.Combined.Confidence*100)

	b.WriteString("COMPONENT ANALYSIS:\n")
	b.WriteString(reportRule + "\n\n")

	eq := a.Earthquake
	distance := "N/A"
	if eq.ClosestDistanceKm != nil {
		distance = fmt.Sprintf("%.1f", *eq.ClosestDistanceKm)
	}
	fmt.Fprintf(&b, "EARTHQUAKE RISK: %s (%.3f)\n", eq.Level, eq.Score)
	fmt.Fprintf(&b, "   Recent Activity: %d events\n", eq.RecentActivity)
	fmt.Fprintf(&b, "   Max Magnitude: M%.1f\n", eq.MaxMagnitude)
	fmt.Fprintf(&b, "   Distance: %s km\n\n", distance)

	mk := a.Market
	fmt.Fprintf(&b, "MARKET RISK: %s (%.3f)\n", mk.Level, mk.Score)
	fmt.Fprintf(&b, "   Markets Analyzed: %d\n", mk.ProcessedMarkets)
	fmt.Fprintf(&b, "   Volatility Factor: %.3f\n", mk.Factors["volatility"])
	fmt.Fprintf(&b, "   Momentum Factor: %.3f\n\n", mk.Factors["momentum"])

	co := a.Correlation
	fmt.Fprintf(&b, "CORRELATION RISK: %s (%.3f)\n", co.Level, co.Score)
	fmt.Fprintf(&b, "   Mean Correlation: %.3f\n", co.Raw["mean_abs_correlation"])
	fmt.Fprintf(&b, "   Max Correlation: %.3f\n\n", co.Raw["max_abs_correlation"])

	fmt.Fprintf(&b, "ACTIVE ALERTS: %d\n", len(a.Alerts))
	if len(a.Alerts) > 0 {
		b.WriteString("\nALERTS:\n")
		for _, alert := range a.Alerts {
			fmt.Fprintf(&b, "   %s: %s\n", alert.Level, alert.Message)
		}
	}

	if len(a.Recommendations) > 0 {
		b.WriteString("\nTOP RECOMMENDATIONS:\n")
		for i, rec := range a.Recommendations {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "   %s: %s\n", rec.Priority, rec.Action)
		}
	}

	return b.String()
}
