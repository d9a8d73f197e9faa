// cfc generates the C binding for a Clownfish parcel: per-unit headers,
// parcel.h and parcel.c.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
