package asm_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_tracer_test.go github.com/xiaobogaga/minicc/asm Tracer
func TestAsm(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Asm Suite")
}
