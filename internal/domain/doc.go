// Package domain models weather-radar volume scans decoded from NEXRAD
// Common Data Model (CDM) archives.
//
// # Data Source
//
// NEXRAD Level II volumes are published by NOAA and redistributed by the
// THREDDS Data Server as CDM/NetCDF files, usually wrapped in bzip2 for
// transport. The archive staging step (package archive) strips that wrapper;
// everything in this package works on the decompressed container through the
// [VariableStore] interface.
//
// # CDM Conventions
//
// Dimensions:
//
//	time      one entry per ray (nrays)
//	range     one entry per gate (ngates)
//	sweep     one entry per sweep (nsweeps)
//
// Ray-indexed variables (time, azimuth, elevation, scan_rate,
// antenna_transition) have shape (nrays). Moment variables (reflectivity,
// velocity, ...) have shape (nrays, ngates). Sweep-indexed variables
// (sweep_number, sweep_mode, fixed_angle, sweep_start_ray_index,
// sweep_end_ray_index, target_scan_rate) have shape (nsweeps). The site
// location (latitude, longitude, altitude) is a one-element vector.
//
// Time encoding:
//
//	Ray times are elapsed seconds from the epoch carried in the units
//	attribute: "seconds since 2013-07-17T19:50:21Z". The decoder passes the
//	units string through untouched; [ParseTimeUnits] exists for consumers.
//
// Packed moments:
//
//	Moments are stored as small integers with scale_factor and add_offset
//	attributes: decoded = raw*scale_factor + add_offset. Byte storage is
//	often flagged _Unsigned = "true". _FillValue is declared in the raw
//	encoding, so masking always compares raw stored values, never decoded
//	ones. A raw reflectivity byte of 2 with scale 0.5 and offset -33 decodes
//	to -32 dBZ; a raw 0 equal to _FillValue is missing.
//
// Sweep modes:
//
//	sweep_mode is a fixed-width char array, NUL or space padded. A volume
//	whose sweeps are all "azimuth_surveillance" is a PPI volume; mixed modes
//	are classified "other".
//
// Sweep boundaries:
//
//	sweep_start_ray_index[i] <= sweep_end_ray_index[i] < nrays, and the
//	sweeps, ordered by start index, cover every ray exactly once.
package domain
