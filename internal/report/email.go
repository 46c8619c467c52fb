package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	"activation-analytics/internal/models"
)

// emailTemplate mirrors the weekly performance update sent to restaurant
// partners: one section per reporting week plus the shared-budget footnote.
var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"money":   formatMoney,
	"percent": formatPercent,
	"daytime": formatDayTime,
}).Parse(`Hi there, hope you are having a great start to your week!

I wanted to update you on how <b>{{.RestaurantName}}</b> <b>{{.LocationName}}</b> has performed over the past {{.WeekCountLabel}} with your promotions. Here's a breakdown for each week:

---
{{range .Weeks}}
<b>{{.Week}} ({{.RelativeLabel}}):</b>

The <b>{{.Description}}</b> promotion ran from <b>{{daytime .ActivationStart}} to {{daytime .ActivationEnd}}</b>.

<b>The Stats:</b>
- <b>Successful Redemptions:</b> {{.RedeemedUsers}} customers hit the {{money .MinimumSpend}} minimum and earned {{money .RewardAmount}} each
- <b>Total Unique Customers:</b> {{.UniqueUsers}} unique customers transacted at your location during the activation period
- <b>Total Payment Volume:</b> {{money .TotalTPV}} processed during the activation window, including customers below the minimum spend
- <b>Median Check Size:</b> {{if .MedianCheck}}{{money .MedianCheck}}{{else}}N/A{{end}}
- <b>New vs Returning:</b> {{.NewUsers}} new customers{{if .NewUserPercentage}} ({{percent .NewUserPercentage}}){{end}} and {{.ReturningUsers}} returning customers visited during the promotion
- <b>Marketing Budget Spent at This Location:</b> {{money .MarketingSpend}} ({{.RedeemedUsers}} redemptions x {{money .RewardAmount}} reward)
- <b>Remaining Group Budget*:</b> {{money .RemainingGroupBudget}}

<b>Performance vs Your Baseline:</b>
- <b>TPV Lift:</b> {{if .TPVVsBaseline}}{{percent .TPVVsBaseline}}{{else}}N/A{{end}} compared to the average of the previous 4 weeks (same days of the week, excluding other promotion periods)
- <b>Check Size Change:</b> {{if .MedianCheckVsBaseline}}{{percent .MedianCheckVsBaseline}}{{else}}N/A{{end}} change in median check compared to baseline
{{if .Notes}}
<b>Note:</b> {{.Notes}}
{{end}}
---
{{end}}
<b>Overall Thoughts:</b>

Looking at the trend, how do you think these promotions are performing? Are there any patterns we should capitalize on or adjust?

I'd love to hear your thoughts on:
- Which time slots or days seem to be working best?
- Any changes you'd like to make to the spend thresholds or reward amounts?
- Different days or times you'd like to test?

*Reminder: If you have multiple restaurants under your hospitality group, the Initial Allotted Marketing Budget is shared across all locations.
`))

type emailWeek struct {
	Week                  string
	RelativeLabel         string
	Description           string
	ActivationStart       string
	ActivationEnd         string
	MinimumSpend          float64
	RewardAmount          float64
	UniqueUsers           int
	RedeemedUsers         int
	TotalTPV              float64
	MedianCheck           *float64
	TPVVsBaseline         *float64
	MedianCheckVsBaseline *float64
	MarketingSpend        float64
	RemainingGroupBudget  float64
	NewUsers              int
	ReturningUsers        int
	NewUserPercentage     *float64
	Notes                 string
}

type emailData struct {
	RestaurantName string
	LocationName   string
	WeekCountLabel string
	Weeks          []emailWeek
}

// formatMoney renders a dollar value with thousands separators.
func formatMoney(v interface{}) string {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case *float64:
		if x == nil {
			return "N/A"
		}
		f = *x
	default:
		return "N/A"
	}

	s := fmt.Sprintf("%.2f", f)
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// formatPercent renders a signed percentage.
func formatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	if *v >= 0 {
		return fmt.Sprintf("+%.1f%%", *v)
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// formatDayTime turns a display timestamp like "2025-11-05 15:00:00" into
// "Wednesday, 3:00 PM". Unparseable values pass through unchanged.
func formatDayTime(s string) string {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return s
	}
	clock := t.Format("3:04 PM")
	return t.Weekday().String() + ", " + clock
}

func relativeWeekLabel(index, total int) string {
	switch total - index {
	case 1:
		return "Last week"
	case 2:
		return "Two weeks ago"
	case 3:
		return "Three weeks ago"
	default:
		return fmt.Sprintf("%d weeks ago", total-index)
	}
}

func weekCountLabel(n int) string {
	switch n {
	case 1:
		return "week"
	case 2:
		return "two weeks"
	case 3:
		return "three weeks"
	default:
		return fmt.Sprintf("%d weeks", n)
	}
}

// RenderEmail writes the narrative performance email for one restaurant
// from its weekly rows. Rows for other restaurants must be filtered out by
// the caller; an empty slice is an error since there is nothing to report.
func RenderEmail(w io.Writer, rows []models.WeeklyRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("no weekly rows to report")
	}

	sorted := append([]models.WeeklyRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Week < sorted[j].Week })

	data := emailData{
		RestaurantName: sorted[0].RestaurantName,
		LocationName:   sorted[0].LocationName,
		WeekCountLabel: weekCountLabel(len(sorted)),
	}
	for i, row := range sorted {
		data.Weeks = append(data.Weeks, emailWeek{
			Week:                  row.Week,
			RelativeLabel:         relativeWeekLabel(i, len(sorted)),
			Description:           row.Description,
			ActivationStart:       row.ActivationStart,
			ActivationEnd:         row.ActivationEnd,
			MinimumSpend:          row.MinimumSpend,
			RewardAmount:          row.RewardAmount,
			UniqueUsers:           row.UniqueUsers,
			RedeemedUsers:         row.RedeemedUsers,
			TotalTPV:              row.TotalTPV,
			MedianCheck:           row.MedianCheck,
			TPVVsBaseline:         row.TPVVsBaseline,
			MedianCheckVsBaseline: row.MedianCheckVsBaseline,
			MarketingSpend:        row.MarketingSpend,
			RemainingGroupBudget:  row.RemainingGroupBudget,
			NewUsers:              row.NewUsers,
			ReturningUsers:        row.ReturningUsers,
			NewUserPercentage:     row.NewUserPercentage,
			Notes:                 row.Notes,
		})
	}

	return emailTemplate.Execute(w, data)
}
