package projector

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/vehicle-ingest/internal/models"
	"github.com/ukydev/vehicle-ingest/internal/schema"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestProjector() *Projector {
	return &Projector{Now: func() time.Time { return fixedNow.Add(400 * time.Millisecond) }}
}

func mustTable(t *testing.T, e schema.Entity) *schema.Table {
	t.Helper()
	tbl, ok := schema.Lookup(e)
	require.True(t, ok)
	return tbl
}

func payload(t *testing.T, s string) models.Payload {
	t.Helper()
	p, err := models.ParsePayload([]byte(s))
	require.NoError(t, err)
	return p
}

func col(t *testing.T, tbl *schema.Table, row []any, name string) any {
	t.Helper()
	i := tbl.Index(name)
	require.GreaterOrEqual(t, i, 0, name)
	return row[i]
}

func TestProject_Fastag(t *testing.T) {
	tbl := mustTable(t, schema.Fastag)
	row, err := newTestProjector().Project(tbl, payload(t, `{
		"TagId": "34161FA82032D2A0",
		"VRN": "MH12AB1234",
		"TagStatus": "ACTIVE",
		"IssueDate": "15/08/2021",
		"LastUpdate": "2024-01-02T08:00:00Z"
	}`))
	require.NoError(t, err)
	require.Len(t, row, len(tbl.Columns()))

	assert.Equal(t, "34161FA82032D2A0", row[0])
	assert.Equal(t, "MH12AB1234", row[1])
	assert.Equal(t, "ACTIVE", col(t, tbl, row, "Tag_Status"))
	assert.Equal(t, "", col(t, tbl, row, "Vehicle_Class"))
	assert.Equal(t, "", col(t, tbl, row, "Issuer_Bank"))
	assert.Equal(t, time.Date(2021, 8, 15, 0, 0, 0, 0, time.UTC), col(t, tbl, row, "Issue_Date"))
	assert.Equal(t, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), col(t, tbl, row, "Last_Update").(time.Time).UTC())
	assert.Equal(t, fixedNow, col(t, tbl, row, "created_on"))
	assert.Equal(t, fixedNow, col(t, tbl, row, "updated_on"))
	assert.Equal(t, uint8(1), col(t, tbl, row, "is_current"))
	assert.Equal(t, uint8(0), col(t, tbl, row, "is_changed"))
	assert.Nil(t, col(t, tbl, row, "dwid"))
}

func TestProject_FastagBadDatesDegrade(t *testing.T) {
	tbl := mustTable(t, schema.Fastag)
	row, err := newTestProjector().Project(tbl, payload(t, `{"TagId":"T","VRN":"V","IssueDate":"someday","LastUpdate":"31/12/2023 10:00"}`))
	require.NoError(t, err)
	assert.Nil(t, col(t, tbl, row, "Issue_Date"))
	assert.Nil(t, col(t, tbl, row, "Last_Update"))
}

func TestProject_VehicleRCAllOptionalAbsent(t *testing.T) {
	tbl := mustTable(t, schema.VehicleRC)
	row, err := newTestProjector().Project(tbl, payload(t, `{"rc_number":"KA01MJ2022"}`))
	require.NoError(t, err)
	require.Len(t, row, len(tbl.Fields))

	for i, f := range tbl.Fields {
		switch f.Kind {
		case schema.KindText:
			if f.Column == "rc_number" {
				assert.Equal(t, "KA01MJ2022", row[i])
				continue
			}
			assert.Equal(t, "", row[i], f.Column)
		case schema.KindDate, schema.KindDateTime, schema.KindFloat, schema.KindInteger:
			assert.Nil(t, row[i], f.Column)
		case schema.KindFlag:
			assert.Equal(t, uint8(0), row[i], f.Column)
		case schema.KindStamp:
			assert.Equal(t, fixedNow, row[i], f.Column)
		default:
			t.Errorf("unexpected kind %s for %s", f.Kind, f.Column)
		}
	}
}

func TestProject_VehicleRCTypedFields(t *testing.T) {
	tbl := mustTable(t, schema.VehicleRC)
	row, err := newTestProjector().Project(tbl, payload(t, `{
		"rc_number": "KA01MJ2022",
		"owner_name": null,
		"registration_date": "2019/07/04",
		"latest_by": "2024-02-01 10:11:12",
		"less_info": true,
		"masked_name": "yes",
		"cubic_capacity": "1497.00",
		"vehicle_gross_weight": 1650,
		"no_cylinders": "4",
		"seat_capacity": "300",
		"non_use_status": "n/a",
		"variant": ""
	}`))
	require.NoError(t, err)

	assert.Equal(t, "", col(t, tbl, row, "owner_name"))
	assert.Equal(t, time.Date(2019, 7, 4, 0, 0, 0, 0, time.UTC), col(t, tbl, row, "registration_date"))
	assert.Equal(t, time.Date(2024, 2, 1, 10, 11, 12, 0, time.UTC), col(t, tbl, row, "latest_by"))
	assert.Equal(t, uint8(1), col(t, tbl, row, "less_info"))
	assert.Equal(t, uint8(0), col(t, tbl, row, "masked_name"))
	assert.Equal(t, float32(1497), col(t, tbl, row, "cubic_capacity"))
	assert.Equal(t, float32(1650), col(t, tbl, row, "vehicle_gross_weight"))
	assert.Equal(t, uint8(4), col(t, tbl, row, "no_cylinders"))
	assert.Nil(t, col(t, tbl, row, "seat_capacity"), "out of range for UInt8")
	assert.Nil(t, col(t, tbl, row, "non_use_status"))
	assert.Equal(t, "", col(t, tbl, row, "variant"))
}

func TestProject_ChallanMandatoryDate(t *testing.T) {
	tbl := mustTable(t, schema.ChallanRecord)
	p := newTestProjector()

	for name, body := range map[string]string{
		"absent":     `{"challanNo":"DL123"}`,
		"null":       `{"challanNo":"DL123","dateChallan":null}`,
		"empty":      `{"challanNo":"DL123","dateChallan":""}`,
		"unparsable": `{"challanNo":"DL123","dateChallan":"15-01-2024 09:30"}`,
	} {
		t.Run(name, func(t *testing.T) {
			row, err := p.Project(tbl, payload(t, body))
			assert.Nil(t, row)
			var mfe *MandatoryFieldError
			require.ErrorAs(t, err, &mfe)
			assert.Equal(t, "dateChallan", mfe.Field)
			assert.Equal(t, "vehicle_challan", mfe.Table)
			assert.Contains(t, err.Error(), "YYYY-MM-DD HH:MM:SS")
		})
	}
}

func TestProject_ChallanRecord(t *testing.T) {
	tbl := mustTable(t, schema.ChallanRecord)
	row, err := newTestProjector().Project(tbl, payload(t, `{
		"challanNo": "DL123",
		"dateChallan": "2024-01-15 09:30:00",
		"forChallan": "",
		"typeAccused": "Owner",
		"detailsViolation": [
			{"offence": "A", "penalty": "10"},
			{"offence": "B", "penalty": null}
		],
		"amountChallan": 500,
		"amountACF": null
	}`))
	require.NoError(t, err)
	require.Len(t, row, 75)

	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), row[8])
	assert.Equal(t, []string{"A", "B"}, row[9])
	assert.Equal(t, []string{"10", ""}, row[10])
	assert.Nil(t, col(t, tbl, row, "forChallan"))
	assert.Equal(t, "Owner", col(t, tbl, row, "typeAccused"))
	assert.Equal(t, "", col(t, tbl, row, "nameViolator"))
	assert.Equal(t, "", col(t, tbl, row, "State"))
	assert.Nil(t, col(t, tbl, row, "witness1"))
	assert.Equal(t, uint32(500), col(t, tbl, row, "amountChallan"))
	assert.Equal(t, uint32(0), col(t, tbl, row, "amountACF"))
	assert.Equal(t, "", col(t, tbl, row, "rcNo"))
}

func TestProject_ChallanWithoutViolations(t *testing.T) {
	tbl := mustTable(t, schema.ChallanRecord)
	row, err := newTestProjector().Project(tbl, payload(t, `{"dateChallan":"2024-01-15"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{}, row[9])
	assert.Equal(t, []string{}, row[10])
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), row[8])
}

func TestProject_RCBlackList(t *testing.T) {
	tbl := mustTable(t, schema.RCBlackList)
	row, err := newTestProjector().Project(tbl, payload(t, `{
		"regNo": "UP32AB0001",
		"stateCode": "",
		"regDate": "2019-07-04",
		"insurance_validUpto": "2025-03-31",
		"blacklistStatus": "NA",
		"statusAsOn": "01/02/2024"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "", col(t, tbl, row, "stateCode"), "empty passthrough text is kept")
	assert.Nil(t, col(t, tbl, row, "model"), "missing passthrough text stays null")
	assert.Equal(t, time.Date(2019, 7, 4, 0, 0, 0, 0, time.UTC), col(t, tbl, row, "regDate"))
	assert.Equal(t, epoch, col(t, tbl, row, "rcExpiryDate"))
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), col(t, tbl, row, "insurance_validUpto"))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), col(t, tbl, row, "statusAsOn"))
	assert.Equal(t, "NA", col(t, tbl, row, "blacklistStatus"))
}

func TestProject_RCBlackListMandatoryDates(t *testing.T) {
	tbl := mustTable(t, schema.RCBlackList)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"regDate missing", `{"regNo":"R1","blacklistStatus":"Y","statusAsOn":"2024-02-01"}`, "regDate"},
		{"regDate unparsable", `{"regNo":"R1","regDate":"garbage","blacklistStatus":"Y","statusAsOn":"2024-02-01"}`, "regDate"},
		{"statusAsOn unparsable", `{"regNo":"R1","regDate":"2019-07-04","blacklistStatus":"Y","statusAsOn":"not-a-date"}`, "statusAsOn"},
		{"statusAsOn empty", `{"regNo":"R1","regDate":"2019-07-04","blacklistStatus":"Y","statusAsOn":""}`, "statusAsOn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := newTestProjector().Project(tbl, payload(t, tt.body))
			assert.Nil(t, row)
			var mf *MandatoryFieldError
			require.True(t, errors.As(err, &mf), "got %v", err)
			assert.Equal(t, tt.field, mf.Field)
			assert.Equal(t, "vehicle_rc_black_list", mf.Table)
			assert.Contains(t, err.Error(), "'YYYY-MM-DD', 'DD/MM/YYYY' or 'YYYY/MM/DD'")
		})
	}
}

func TestProject_ChallanAllState(t *testing.T) {
	tbl := mustTable(t, schema.ChallanAllState)
	row, err := newTestProjector().Project(tbl, payload(t, `{
		"number": 7,
		"challanNumber": "MH4536",
		"challanDate": "2023-11-02",
		"amount": "1500"
	}`))
	require.NoError(t, err)
	assert.Equal(t, int32(7), row[0])
	assert.Equal(t, "MH4536", row[1])
	assert.Equal(t, int32(1500), col(t, tbl, row, "amount"))
	assert.Equal(t, time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC), col(t, tbl, row, "challanDate"))
	assert.Nil(t, col(t, tbl, row, "court_status"))
}

func TestProjectBatch_ServiceHistory(t *testing.T) {
	tbl := mustTable(t, schema.ServiceHistory)
	rows, err := newTestProjector().ProjectBatch(tbl, payload(t, `{
		"vehicleNumber": "MH14GH7788",
		"serviceHistoryDetails": [
			{"repair_order_no": "RO1", "svc_date": "2023-04-05", "mileage": "12000", "net_bill_amt": "4500.50"},
			{"svc_date": "bad", "paid_amt": "", "dealer_name": ""}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first, second := rows[0], rows[1]
	assert.Equal(t, "MH14GH7788", col(t, tbl, first, "vehicleNumber"))
	assert.Equal(t, "MH14GH7788", col(t, tbl, second, "vehicleNumber"))
	assert.Equal(t, "RO1", col(t, tbl, first, "repair_order_no"))
	assert.Equal(t, "", col(t, tbl, second, "repair_order_no"))
	assert.Equal(t, time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC), col(t, tbl, first, "svc_date"))
	assert.Equal(t, epoch, col(t, tbl, second, "svc_date"))
	assert.Equal(t, uint32(12000), col(t, tbl, first, "mileage"))
	assert.Equal(t, 4500.50, col(t, tbl, first, "net_bill_amt"))
	assert.Nil(t, col(t, tbl, second, "paid_amt"))
	assert.Nil(t, col(t, tbl, second, "dealer_name"))
	assert.Equal(t, fixedNow, col(t, tbl, second, "created_on"))
}

func TestProjectBatch_NoChildren(t *testing.T) {
	tbl := mustTable(t, schema.ServiceHistory)
	rows, err := newTestProjector().ProjectBatch(tbl, payload(t, `{"vehicleNumber":"X","serviceHistoryDetails":[]}`))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProjectBatch_SingleRowTable(t *testing.T) {
	tbl := mustTable(t, schema.RCChassis)
	rows, err := newTestProjector().ProjectBatch(tbl, payload(t, `{"vehicle_num":"MA1TA2"}`))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"MA1TA2"}}, rows)
}

func TestProjector_DefaultClock(t *testing.T) {
	var p *Projector
	before := time.Now().UTC().Truncate(time.Second)
	got := p.now()
	assert.False(t, got.Before(before))
	assert.Equal(t, time.UTC, got.Location())
	assert.NotNil(t, New().Now)
}

func TestFlatten(t *testing.T) {
	var list any
	require.NoError(t, json.Unmarshal([]byte(`[{"offence":"A","penalty":"10"},{"offence":"B","penalty":null}]`), &list))

	offence, penalty := Flatten(list, "offence", "penalty")
	assert.Equal(t, []string{"A", "B"}, offence)
	assert.Equal(t, []string{"10", ""}, penalty)
}

func TestFlatten_AbsentOrEmpty(t *testing.T) {
	for _, list := range []any{nil, []any{}, "not a list"} {
		a, b := Flatten(list, "offence", "penalty")
		assert.NotNil(t, a)
		assert.NotNil(t, b)
		assert.Empty(t, a)
		assert.Empty(t, b)
	}
}

func TestFlattenColumns_KeepsPositions(t *testing.T) {
	list := []any{
		map[string]any{"offence": "A"},
		"junk",
		map[string]any{"penalty": json.Number("250")},
	}
	cols := FlattenColumns(list, "offence", "penalty")
	require.Len(t, cols, 2)
	assert.Equal(t, []string{"A", "", ""}, cols[0])
	assert.Equal(t, []string{"", "", "250"}, cols[1])
}
