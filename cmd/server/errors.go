package main

import "github.com/samber/oops"

func errNeedsPostgres(cmd string) error {
	return oops.Code("CONFIG_INVALID").Errorf("%s needs postgres storage (--storage=postgres)", cmd)
}
