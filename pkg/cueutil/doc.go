// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// It consolidates the 3-step CUE parsing pattern used by the stagefile and
// config packages:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// # Usage
//
//	//go:embed stagefile_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Recipe](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Stagefile",
//	    cueutil.WithFilename("stagefile.cue"),
//	)
//	if err != nil {
//	    return nil, err // error includes the CUE path of the offending field
//	}
//	return result.Value, nil
package cueutil
