package asm

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

var registerOrder = []string{"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp"}

// StateTable renders the registers and the words between rsp and the top of the stack.
func (machine *Machine) StateTable() string {
	regTable := table.NewWriter()
	regTable.SetTitle(fmt.Sprintf("Registers after %d steps", machine.steps))
	regTable.AppendHeader(table.Row{"Register", "Value", "Hex"})
	for _, name := range registerOrder {
		value := machine.registers[name]
		regTable.AppendRow(table.Row{name, value, fmt.Sprintf("0x%x", uint64(value))})
	}

	stackTable := table.NewWriter()
	stackTable.SetTitle("Stack")
	stackTable.AppendHeader(table.Row{"Address", "Value", "Labels"})
	top := stackBase + int64(len(machine.stack))
	for address := machine.registers["rsp"]; address >= stackBase && address+8 <= top; address += 8 {
		value, err := machine.load(address)
		if err != nil {
			break
		}
		stackTable.AppendRow(table.Row{fmt.Sprintf("0x%x", address), value, machine.frameLabel(address)})
	}
	return regTable.Render() + "\n" + stackTable.Render()
}

// frameLabel names the registers pointing at address.
func (machine *Machine) frameLabel(address int64) string {
	var names []string
	for _, name := range []string{"rbp", "rsp"} {
		if machine.registers[name] == address {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}
