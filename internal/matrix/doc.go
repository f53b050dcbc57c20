// Package matrix turns option chain snapshots into fixed-width banded
// rows. Strikes are ranked around the at-the-money strike into ITM/OTM
// bands per side, and each metric (iv, delta, price, ...) becomes one
// row whose cells line up with model.BandLabels.
package matrix
