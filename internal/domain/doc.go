// Package domain implements the EVI/LST anomaly correlation over MODIS
// raster products.
//
// # Data Sources
//
// Raw scenes come from a remote raster catalog (see [Catalog]). Two products
// feed the analysis, plus one land-cover classification used for masking:
//
//	MODIS/061/MOD13Q1  16-day vegetation indices, band "EVI", QA "SummaryQA"
//	MODIS/061/MOD11A1  daily land-surface temperature, band "LST_Day_1km", QA "QC_Day"
//	MODIS/061/MCD12Q1  yearly land cover, band "LC_Type1" (IGBP classes)
//
// The core assumes every scene is already resampled onto one pixel grid.
// Grids that disagree on shape are rejected (see raster.AlignmentError).
//
// # MODIS Encoding Conventions
//
// Quality bits:
//
//	Bits 0-1 of both SummaryQA and QC_Day encode cloud/quality state.
//	0 means clear; 1, 2 and 3 are marginal, snow/ice or cloudy and are masked.
//
// Scaling:
//
//	EVI:  stored as int16, EVI = raw * 0.0001
//	LST:  stored as uint16 Kelvin/0.02, °C = raw * 0.02 - 273.15
//
// Land cover (LC_Type1, IGBP):
//
//	1 evergreen needleleaf, 2 evergreen broadleaf, 3 deciduous needleleaf,
//	4 deciduous broadleaf, 5 mixed forest. These five classes form the
//	forest mask; every other class is excluded.
//
// # Computation
//
// For each product and each year Y in [StartYear, EndYear]:
//
//	window composites  median of cloud-masked scenes in [Y+d, Y+d+16) for d = 0, 16, ..., 352
//	yearly composite   per-pixel median of the 23 window composites
//	baseline           median of every cloud-masked scene in the baseline range
//	anomaly            yearly composite - baseline
//	z-score            anomaly / sample stddev of the pixel's anomalies across years
//
// The last window of a year runs past December 31st into the next year. This
// matches the reference analysis and is intentional.
//
// The correlation at each pixel is
//
//	r = Σ(A·B) / sqrt(ΣA² · ΣB²)
//
// over years where both Z-scores are valid. r is left unclamped.
//
// # No-data
//
// Missing scenes, cloudy pixels, undefined statistics (fewer than two years,
// zero variance) and pixels outside the region of interest are carried as
// no-data in the grid's validity mask. None of these are errors.
package domain
