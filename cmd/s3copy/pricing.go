package main

import "github.com/gostratum/s3copy"

// pricingFor returns a PricingRecord for region. spec.md §6.3 calls out the
// actual rate table as an external collaborator's concern; this is a small
// hardcoded placeholder covering request and storage rates in the same
// order of magnitude as published S3 pricing, good enough for --estimate
// and --get-price until a real pricing feed is wired in.
func pricingFor(region string) s3copy.PricingRecord {
	return s3copy.PricingRecord{
		Region: region,
		Rates: map[s3copy.PricingRateKind]float64{
			s3copy.RatePutCopyRequestPer1000: 0.5,
			s3copy.RateGetHeadRequestPer1000: 0.04,
			s3copy.RateDataOutPerGiB:         2.0,
			s3copy.RateStoragePerGiBMonth:    2.3,
		},
		DestRegion: map[string]float64{},
		StorageClass: map[string]float64{
			"STANDARD":             2.3,
			"STANDARD_IA":          1.25,
			"ONEZONE_IA":           1.0,
			"GLACIER":              0.4,
			"GLACIER_DEEP_ARCHIVE": 0.099,
			"INTELLIGENT_TIERING":  2.3,
		},
	}
}
