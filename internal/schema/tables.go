package schema

import "sort"

var fastagTable = &Table{
	Entity: Fastag,
	Name:   "fastag_details",
	Fields: fields(
		texts("TagId", "VRN"),
		one(
			text("Tag_Status").From("TagStatus"),
			text("Vehicle_Class").From("VehicleClass"),
			text("Action"),
			date("Issue_Date").From("IssueDate"),
			text("Issuer_Bank").From("IssuerBank"),
			dateTime("Last_Update").From("LastUpdate"),
			stamp("created_on"),
			stamp("updated_on"),
			constant("is_current", UInt8, uint8(1)),
			constant("is_changed", UInt8, uint8(0)),
			constant("dwid", String, nil),
		),
	),
	OrderBy: []string{"TagId"},
	Keys:    []string{"TagId", "VRN"},
	Message: "FASTag data inserted successfully",
}

var vehicleRCTable = &Table{
	Entity: VehicleRC,
	Name:   "vehicle_rc_v10",
	Fields: fields(
		texts("rc_number"),
		dates("registration_date"),
		texts(
			"owner_name", "father_name", "present_address", "permanent_address",
			"mobile_number", "vehicle_category", "vehicle_chasi_number",
			"vehicle_engine_number", "maker_description", "maker_model",
			"body_type", "fuel_type", "color", "norms_type",
		),
		dates("fit_up_to"),
		texts("financer", "financed", "insurance_company", "insurance_policy_number"),
		dates("insurance_upto"),
		texts("manufacturing_date", "manufacturing_date_formatted", "registered_at"),
		one(
			dateTime("latest_by"),
			flag("less_info"),
		),
		dates("tax_upto", "tax_paid_upto"),
		one(
			float("cubic_capacity", Float32),
			float("vehicle_gross_weight", Float32),
			integer("no_cylinders", UInt8),
			integer("seat_capacity", UInt8),
		),
		texts(
			"sleeper_capacity", "standing_capacity", "wheelbase", "unladen_weight",
			"vehicle_category_description", "pucc_number",
		),
		dates("pucc_upto"),
		texts(
			"permit_number", "permit_issue_date", "permit_valid_from",
			"permit_valid_upto", "permit_type", "national_permit_number",
		),
		dates("national_permit_upto"),
		texts("national_permit_issued_by"),
		one(integer("non_use_status", UInt8)),
		dates("non_use_from", "non_use_to"),
		texts("blacklist_status", "noc_details", "owner_number", "rc_status"),
		one(flag("masked_name")),
		texts(
			"variant", "permanent_Pincode", "is_luxuryMover", "make_Name",
			"model_Name", "variant_Name", "statusAsOn", "isCommercial",
			"manufacture_Year", "purchase_Date", "rto_Code", "rto_Name",
			"regAuthority", "rcStandardCap", "blacklistDetails", "dbResult",
			"result", "recommended_Vehicle", "carVariant", "cityofRegitration",
			"cityofRegitrationId", "manufactureMonth", "expiryDuration", "city",
			"year", "status",
		),
		one(stamp("created_on"), stamp("updated_on")),
	),
	OrderBy: []string{"rc_number"},
	Keys:    []string{"rc_number"},
	Message: "RC data inserted successfully",
}

var challanRecordTable = &Table{
	Entity: ChallanRecord,
	Name:   "vehicle_challan",
	Fields: fields(
		optTexts("forChallan", "typeAccused"),
		texts("nameViolator"),
		optTexts("violatorFatherName", "violatorContactNo"),
		texts("dlRcNumber", "challanNo", "State"),
		one(
			dateTime("dateChallan").Mandatory(),
			list("detailsViolation", "offence"),
			list("detailsViolation", "penalty"),
		),
		optTexts(
			"investigateUnder", "longLat", "locationChallan", "remarkChallan",
			"typeBook", "bookNo", "formNo", "witness1", "witness2", "witness3",
			"imagesChallan", "imageVehicle", "imageCCTV1", "imageCCTV2",
			"numberDL", "detailsDL", "suspendISDL", "accNameDL", "accAddressDL",
			"accFatherNameDL", "accAgeDL", "accGenderDL", "validityDL",
			"issueDateDL", "issuedByDL",
		),
		one(integer("amountChallan", UInt32).NotNull()),
		texts("status"),
		optTexts(
			"sourcePayment", "datePayment", "IDTransaction", "noReceipt",
			"noReceiptOffline", "receiptOffline", "noMobile", "byPayment", "acfIS",
		),
		one(integer("amountACF", UInt32).NotNull()),
		optTexts(
			"noReceiptACF", "nameRTO", "impoundDocument", "impoundVehicle",
			"classVehicle", "typeVehicle", "uptoVehicle", "uptoPermit",
		),
		texts("rcNo"),
		optTexts(
			"noChassis", "noEngine", "noVehOwner", "nameOwner", "nameFatherOwner",
			"addressOwner", "idCourt", "statusCourt", "idCourtRelated",
			"imgOrderRelease", "dateRelease", "noReceiptCourt", "byAction",
			"noDispatch", "nameCourt", "chargesUser", "challan_search_source",
			"court_status_desc",
		),
	),
	OrderBy: []string{"challanNo"},
	Keys:    []string{"challanNo"},
	Message: "Challan record inserted successfully",
}

var rcBlackListTable = &Table{
	Entity: RCBlackList,
	Name:   "vehicle_rc_black_list",
	Fields: fields(
		texts("regNo"),
		raws("stateCode"),
		one(date("regDate").Mandatory()),
		raws("vehicleClass", "classCode", "model", "fuelType", "owner"),
		one(date("rcExpiryDate").NotNull()),
		raws("vehicleTaxUpto", "emissionNorms", "normsCode", "insurance_companyName"),
		one(date("insurance_validUpto").NotNull()),
		raws("financier_name", "financedFrom", "registrationAuthority", "puccUpto"),
		texts("blacklistStatus"),
		raws("nocDetails", "status"),
		one(date("statusAsOn").Mandatory()),
	),
	OrderBy: []string{"regNo"},
	Keys:    []string{"regNo"},
	Message: "RC blacklist entry inserted successfully",
}

var challanAllStateTable = &Table{
	Entity: ChallanAllState,
	Name:   "vehicle_challan_all_state",
	Fields: fields(
		one(integer("number", Int32).NotNull()),
		raws("challanNumber", "offenseDetails", "challanPlace", "payment_url", "image_url"),
		one(date("challanDate").NotNull()),
		raws("state", "rto", "accusedName", "accused_father_name"),
		one(integer("amount", Int32).NotNull()),
		raws("challanStatus", "court_status"),
	),
	OrderBy: []string{"number"},
	Keys:    []string{"challanNumber"},
	Message: "Challan data inserted successfully",
}

var rcChassisTable = &Table{
	Entity:  RCChassis,
	Name:    "rc_chassis",
	Fields:  texts("vehicle_num"),
	OrderBy: []string{"vehicle_num"},
	Keys:    []string{"vehicle_num"},
	Message: "RC chassis data inserted successfully",
}

var serviceHistoryTable = &Table{
	Entity: ServiceHistory,
	Name:   "vehicle_service_history",
	Fields: fields(
		texts("vehicleNumber"),
		optTexts("register_no"),
		texts("repair_order_no"),
		optTexts(
			"repair_order_bill_no", "chassis_no", "location_code", "location_name",
			"dealer_code", "dealer_name",
		),
		one(
			date("svc_date").NotNull(),
			date("repair_order_bill_date"),
			integer("mileage", UInt32),
			float("net_bill_amt", Float64),
			float("out_standing_amt", Float64),
			float("paid_amt", Float64),
		),
		optTexts(
			"online_payment_flag", "service_assistant_no", "service_assistant_name",
			"work_type", "status", "service_cate",
		),
		one(stamp("created_on"), stamp("updated_on")),
	),
	OrderBy:  []string{"vehicleNumber", "svc_date", "repair_order_no"},
	Keys:     []string{"vehicleNumber"},
	FanOut:   &FanOut{Parent: "vehicleNumber", Children: "serviceHistoryDetails"},
	Settings: "index_granularity = 8192",
	Message:  "Mahindra service history inserted successfully",
}

var tables = map[Entity]*Table{
	Fastag:          fastagTable,
	VehicleRC:       vehicleRCTable,
	ChallanRecord:   challanRecordTable,
	RCBlackList:     rcBlackListTable,
	ChallanAllState: challanAllStateTable,
	RCChassis:       rcChassisTable,
	ServiceHistory:  serviceHistoryTable,
}

// Lookup returns the table declared for entity.
func Lookup(e Entity) (*Table, bool) {
	t, ok := tables[e]
	return t, ok
}

// All returns every declared table ordered by entity name.
func All() []*Table {
	out := make([]*Table, 0, len(tables))
	for _, t := range tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

// Entities returns every entity in route order.
func Entities() []Entity {
	return []Entity{Fastag, VehicleRC, ChallanRecord, RCBlackList, ChallanAllState, RCChassis, ServiceHistory}
}
