// Copyright 2026 The spillover Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// spillover implements disk-backed container types with a bounded RAM budget.
// when a dataset is too large for comfortable RAM use but too small to justify
// a real database, these containers keep a hot set of decoded values in memory
// and spill the rest to a scratch file on disk. the backing file is scratch
// state tied to the container lifetime, never a durable store.
package spillover

// you can use it as :

// ctx := context.Background()

// d, err := NewDict(Options{RAMBudget: 64 << 10})
// if err != nil {
//   log.Println(err)
//   return
// }

// defer d.Close(ctx)

// d.Set(ctx, "longkey", map[string]interface{}{"hello": "world"})

// v, err := d.Get(ctx, "longkey")
// if err != nil {
//   log.Println(err)
//   return
// }

// log.Println(v)
