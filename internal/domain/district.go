package domain

import "strings"

// District is one of Tainan City's administrative districts.
type District struct {
	Code string
	Name string
}

// Districts lists the 37 districts of Tainan City by interior-ministry code.
var Districts = []District{
	{"67000010", "新營區"}, {"67000020", "鹽水區"}, {"67000030", "白河區"}, {"67000040", "柳營區"},
	{"67000050", "後壁區"}, {"67000060", "東山區"}, {"67000070", "麻豆區"}, {"67000080", "下營區"},
	{"67000090", "六甲區"}, {"67000100", "官田區"}, {"67000110", "大內區"}, {"67000120", "佳里區"},
	{"67000130", "學甲區"}, {"67000140", "西港區"}, {"67000150", "七股區"}, {"67000160", "將軍區"},
	{"67000170", "北門區"}, {"67000180", "新化區"}, {"67000190", "善化區"}, {"67000200", "新市區"},
	{"67000210", "安定區"}, {"67000220", "山上區"}, {"67000230", "玉井區"}, {"67000240", "楠西區"},
	{"67000250", "南化區"}, {"67000260", "左鎮區"}, {"67000270", "仁德區"}, {"67000280", "歸仁區"},
	{"67000290", "關廟區"}, {"67000300", "龍崎區"}, {"67000310", "永康區"}, {"67000320", "東區"},
	{"67000330", "南區"}, {"67000340", "北區"}, {"67000350", "中西區"}, {"67000360", "安南區"},
	{"67000370", "安平區"},
}

var districtsByCode = func() map[string]string {
	m := make(map[string]string, len(Districts))
	for _, d := range Districts {
		m[d.Code] = d.Name
	}
	return m
}()

// LookupDistrict resolves a district code, ignoring surrounding whitespace.
func LookupDistrict(code string) (string, bool) {
	name, ok := districtsByCode[strings.TrimSpace(code)]
	return name, ok
}
