package factory_test

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/wage-compliance/factory"
	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
)

const fullRequest = `{
  "worker": {"id": "emp-001", "age": 19, "is_apprentice": true, "apprenticeship_start": "2023-12-09"},
  "pay_period": {"id": "2024-w23", "start": "2024-06-03", "end": "2024-06-09", "total_hours": 35, "total_pay": "301.00"},
  "offsets": [
    {"type": "Accommodation", "daily_rate": "12", "days_applied": 5},
    {"type": "uniform", "amount": 7.5}
  ],
  "allowances": [
    {"type": "shiftPremium", "amount": 20},
    {"type": "tips", "amount": "35.10"}
  ]
}`

func TestParseRequest_Full(t *testing.T) {
	req, err := factory.NewRequestFactory().ParseRequest([]byte(fullRequest))
	require.NoError(t, err)

	assert.Equal(t, "emp-001", req.Worker.ID)
	require.NotNil(t, req.Worker.Age)
	assert.Equal(t, 19, *req.Worker.Age)
	assert.True(t, req.Worker.IsApprentice)
	require.NotNil(t, req.Worker.ApprenticeshipStart)
	assert.True(t, req.Worker.ApprenticeshipStart.Equal(generic.NewTimePoint(2023, time.December, 9)))

	assert.Equal(t, "emp-001", req.Period.WorkerID)
	assert.True(t, req.Period.End.Equal(generic.NewTimePoint(2024, time.June, 9)))
	assert.Equal(t, "35", req.Period.TotalHours.String())
	assert.Equal(t, "301", req.Period.TotalPay.String())

	require.Len(t, req.Offsets, 2)
	assert.Equal(t, payroll.OffsetAccommodation, req.Offsets[0].Type)
	assert.True(t, req.Offsets[0].Amount.IsZero())
	require.NotNil(t, req.Offsets[0].DailyRate)
	assert.Equal(t, "12", req.Offsets[0].DailyRate.String())
	assert.Equal(t, 5, *req.Offsets[0].DaysApplied)
	assert.Equal(t, "7.5", req.Offsets[1].Amount.String())

	require.Len(t, req.Allowances, 2)
	assert.Equal(t, payroll.AllowanceShiftPremium, req.Allowances[0].Type)
	assert.Equal(t, payroll.AllowanceTips, req.Allowances[1].Type)
	assert.Equal(t, "35.1", req.Allowances[1].Amount.String())
}

func TestParseRequest_DateOfBirth(t *testing.T) {
	req, err := factory.NewRequestFactory().ParseRequest([]byte(`{
		"worker": {"date_of_birth": "2003-06-09"},
		"pay_period": {"start": "2024-06-03", "end": "2024-06-09", "total_hours": 40, "total_pay": 460}
	}`))
	require.NoError(t, err)

	assert.Nil(t, req.Worker.Age)
	age, ok := req.Worker.AgeOn(req.Period.PayDate())
	assert.True(t, ok)
	assert.Equal(t, 21, age)
}

func TestParseRequest_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"malformed", `{"worker":`, "body"},
		{"non-numeric pay", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":"lots"}}`, "body"},
		{"missing start", `{"worker":{"age":30},"pay_period":{"end":"2024-06-09","total_hours":40,"total_pay":400}}`, "pay_period.start"},
		{"bad date", `{"worker":{"age":30},"pay_period":{"start":"03/06/2024","end":"2024-06-09","total_hours":40,"total_pay":400}}`, "pay_period.start"},
		{"end before start", `{"worker":{"age":30},"pay_period":{"start":"2024-06-09","end":"2024-06-03","total_hours":40,"total_pay":400}}`, "pay_period.end"},
		{"missing hours", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_pay":400}}`, "pay_period.total_hours"},
		{"negative pay", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":-1}}`, "pay_period.total_pay"},
		{"negative age", `{"worker":{"age":-2},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":400}}`, "worker.age"},
		{"bad birth date", `{"worker":{"date_of_birth":"yesterday"},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":400}}`, "worker.date_of_birth"},
		{"unknown offset", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":400},"offsets":[{"type":"parking","amount":5}]}`, "offsets[0].type"},
		{"allowance as offset", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":400},"offsets":[{"type":"tips","amount":5}]}`, "offsets[0].type"},
		{"offset without amount", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":400},"offsets":[{"type":"uniform"}]}`, "offsets[0].amount"},
		{"negative daily rate", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":400},"offsets":[{"type":"meals","daily_rate":-3}]}`, "offsets[0].daily_rate"},
		{"negative allowance", `{"worker":{"age":30},"pay_period":{"start":"2024-06-03","end":"2024-06-09","total_hours":40,"total_pay":400},"allowances":[{"type":"bonus","amount":-5}]}`, "allowances[0].amount"},
	}

	f := factory.NewRequestFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseRequest([]byte(tt.body))
			var vErr *generic.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestParseBatch(t *testing.T) {
	f := factory.NewRequestFactory()

	reqs, err := f.ParseBatch([]byte(`{"requests": [` + fullRequest + `,` + fullRequest + `]}`))
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	_, err = f.ParseBatch([]byte(`{"requests": []}`))
	assert.True(t, generic.IsClientError(err))

	_, err = f.ParseBatch([]byte(`{"requests": [` + fullRequest + `, {"worker": {"age": 30}, "pay_period": {}}]}`))
	var vErr *generic.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "requests[1].pay_period.start", vErr.Field)
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewRequestFactory()
	req, err := f.ParseRequest([]byte(fullRequest))
	require.NoError(t, err)

	data, err := json.Marshal(f.ToJSON(req))
	require.NoError(t, err)

	again, err := f.ParseRequest(data)
	require.NoError(t, err)
	dataAgain, err := json.Marshal(f.ToJSON(again))
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(dataAgain))
}
