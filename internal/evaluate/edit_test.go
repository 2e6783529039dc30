package evaluate

import (
	"testing"

	"github.com/ppiankov/tdscan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []model.ReportRow {
	return []model.ReportRow{
		{Party: "Acme", Section: "194J", Total: d("200000"), Rate: d("10"), Applicable: true, WithholdingAmount: d("20000")},
		{Party: "Acme", Section: "194C", Total: d("50000"), Rate: d("2"), Applicable: false, WithholdingAmount: d("0")},
		{Party: "Beta", Section: "194I", Total: d("300000"), Rate: d("10"), Applicable: true, WithholdingAmount: d("30000")},
	}
}

func TestRateEditRecomputesAmount(t *testing.T) {
	rows := sampleRows()

	err := ApplyEdit(rows, Edit{Party: "Acme", Section: "194J", Field: "rate", Value: "5"})
	require.NoError(t, err)

	assert.Equal(t, "10000.00", rows[0].WithholdingAmount.StringFixed(2))
	assert.True(t, rows[0].Total.Equal(d("200000")), "total unchanged")
	assert.True(t, rows[0].Rate.Equal(d("5")))
	// Other rows untouched
	assert.True(t, rows[1].Rate.Equal(d("2")))
	assert.True(t, rows[2].WithholdingAmount.Equal(d("30000")))
}

func TestEditWithoutSectionTargetsAllPartyRows(t *testing.T) {
	rows := sampleRows()

	require.NoError(t, ApplyEdit(rows, Edit{Party: "Acme", Field: "RATE", Value: "1"}))

	assert.Equal(t, "2000.00", rows[0].WithholdingAmount.StringFixed(2))
	assert.Equal(t, "500.00", rows[1].WithholdingAmount.StringFixed(2))
}

func TestRateEditOnBelowThresholdRowIsMarked(t *testing.T) {
	rows := sampleRows()
	rows[0].Reason = ReasonCumulative
	rows[1].Reason = ReasonBelowThreshold

	require.NoError(t, ApplyEdit(rows, Edit{Party: "Acme", Field: "rate", Value: "4"}))

	assert.False(t, rows[1].Applicable, "editing the rate never changes applicability")
	assert.Equal(t, "2000.00", rows[1].WithholdingAmount.StringFixed(2))
	assert.Equal(t, ReasonRateEditedBelow, rows[1].Reason)
	assert.Equal(t, ReasonCumulative, rows[0].Reason, "applicable rows keep their reason")

	report := &model.Report{Summary: rows}
	report.Recompute()
	assert.Equal(t, "38000.00", report.Statistics.TotalWithholding.StringFixed(2),
		"only applicable rows count toward the total")
}

func TestSectionEdit(t *testing.T) {
	rows := sampleRows()

	require.NoError(t, ApplyEdit(rows, Edit{Party: "Beta", Field: "section", Value: "194IB"}))
	assert.Equal(t, "194IB", rows[2].Section)
	assert.True(t, rows[2].WithholdingAmount.Equal(d("30000")))
}

func TestUnsupportedField(t *testing.T) {
	rows := sampleRows()
	before := sampleRows()

	err := ApplyEdit(rows, Edit{Party: "Acme", Field: "total", Value: "1"})

	var unsupported *UnsupportedEditFieldError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "total", unsupported.Field)
	assert.Equal(t, before, rows)
}

func TestEditUnknownRow(t *testing.T) {
	rows := sampleRows()

	assert.ErrorIs(t, ApplyEdit(rows, Edit{Party: "Gamma", Field: "rate", Value: "1"}), ErrRowNotFound)
	assert.ErrorIs(t, ApplyEdit(rows, Edit{Party: "Beta", Section: "194J", Field: "rate", Value: "1"}), ErrRowNotFound)
}

func TestEditInvalidValue(t *testing.T) {
	rows := sampleRows()
	before := sampleRows()

	assert.ErrorIs(t, ApplyEdit(rows, Edit{Party: "Acme", Field: "rate", Value: "ten"}), ErrInvalidEditValue)
	assert.ErrorIs(t, ApplyEdit(rows, Edit{Party: "Acme", Field: "rate", Value: "-1"}), ErrInvalidEditValue)
	assert.ErrorIs(t, ApplyEdit(rows, Edit{Party: "Acme", Field: "section", Value: " "}), ErrInvalidEditValue)
	assert.Equal(t, before, rows)
}
