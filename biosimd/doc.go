// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides the reverse-complement support k-mer scanning
// needs: ReverseComp8NoValidate, operating directly on ASCII base bytes.
package biosimd
