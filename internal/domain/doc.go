// Package domain models the two open datasets joined into the weekly dengue summary.
//
// # Data Sources
//
// Oviposition-trap ("bucket") surveillance is published by the Tainan City Government
// open-data portal at https://data.tainan.gov.tw as one CSV per Republic-era year. The
// portal lists each year under a link titled "<ROC year>年臺南市登革熱誘卵桶監測資訊";
// the year page carries a direct CSV link.
//
// Daily weather observations come from the Central Weather Administration's CODiS
// service (https://codis.cwa.gov.tw/StationData). The station list is a virtualized
// table, so a station row only exists in the DOM once it is scrolled into view. The
// monthly report ("月報表(逐日資料)") is exported through a lightbox and lands in the
// browser's download directory under a name the browser picks.
//
// # File Conventions
//
//	bucket_<ROC year>.csv          e.g. bucket_114.csv for 2025
//	<station>-<YYYY>-<MM>.csv      e.g. 467410-2025-03.csv
//	week_data.csv                  reconciled output, UTF-8 with BOM
//
// [WeatherArtifact] and [BucketArtifact] are the only places these names are built.
//
// # CODiS CSV Layout
//
// The first line is a Chinese caption row; the second line holds the real column
// codes (ObsTime, StnPres, Temperature, ...). Days without an observation carry
// "--" in every measurement, including station pressure (StnPres), which is how an
// invalid day is detected.
//
// # Surveillance CSV Layout
//
// Columns Seq, 縣市, 區別, 監測週期, 陽性率, 總卵粒數. 區別 is the district code
// (6700xxxx) and is resolved to a name through [Districts].
//
// # Republic-era Years
//
// ROC year = Gregorian year - 1911. See [Period.ROCYear].
package domain
