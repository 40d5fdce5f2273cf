// Package highlight finds filter pattern matches in a frame and maps every
// match onto all three representations of that frame.
//
// A rule pattern is classified as a bit sequence, a hex sequence (where '*'
// stands for any one byte) or literal text. Matches are found in the
// representation the pattern belongs to, projected to an inclusive byte
// range, and expanded back out into bit, hex and text offsets. The result is
// a list of (start, end, color) spans per representation; painting them is
// left to the caller.
//
// Buffer keeps the running offsets needed when frames are shown one per line
// in a single continuous view.
package highlight
