// Package vm implements the Sigil executor.
//
// A VM drives a decoded *bytecode.Program against a *field.Field. Each run
// creates one particle and applies the program's operations to it in order,
// feeding step i the weights of edge (i-1 -> i). A run ends when an
// operation halts it or the operations run out.
//
// This package contains:
//   - The 22-entry transition table (pure functions of particle and operands)
//   - The step loop with tracing and perceptron feedback
//   - Result and its CBOR wire form
package vm
